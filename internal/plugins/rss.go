package plugins

import (
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// RSSPlugin registers rss(xml), grounded on original_source's
// imports/rss.rs Rss callable, backed here by gofeed which handles both
// RSS 2.0 and Atom feeds and their assorted date dialects. The feed body
// is supplied by the caller (typically via fetch first), rather than
// fetched by this plugin itself.
type RSSPlugin struct{}

func (RSSPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("rss", runtime.Callable(runtime.AsyncFunc(rssCall)))
}

func rssCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("rss(xml) takes exactly one argument")
	}
	xml, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}

	fp := gofeed.NewParser()
	feed, err := fp.ParseStringWithContext(xml, rc.Go)
	if err != nil {
		return runtime.Null, apperr.Script("rss: parse feed", err)
	}

	items := make([]runtime.Value, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := item.Link
		pubDate := ""
		if item.PublishedParsed != nil {
			pubDate = item.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")
		}
		items = append(items, runtime.Object([]runtime.Pair{
			{Key: "title", Value: runtime.String(item.Title)},
			{Key: "description", Value: runtime.String(item.Description)},
			{Key: "pubDate", Value: runtime.String(pubDate)},
			{Key: "link", Value: runtime.String(link)},
		}))
	}

	return runtime.Object([]runtime.Pair{
		{Key: "title", Value: runtime.String(feed.Title)},
		{Key: "description", Value: runtime.String(feed.Description)},
		{Key: "items", Value: runtime.Array(items)},
	}), nil
}
