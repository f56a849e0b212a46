package plugins

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// HQPlugin registers hq(html, css), grounded on original_source's
// imports/jq.rs Hq callable (there backed by tl's query_selector; here
// golang.org/x/net/html plus andybalholm/cascadia's CSS-selector compiler
// fill the same role).
type HQPlugin struct{}

func (HQPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("hq", runtime.Callable(runtime.AsyncFunc(hqCall)))
}

func hqCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 2 {
		return runtime.Null, apperr.InvalidInput("hq(html, css) takes exactly two arguments")
	}
	src, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	css, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}

	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return runtime.Null, apperr.Script("hq: parse html", err)
	}
	sel, err := cascadia.Compile(css)
	if err != nil {
		return runtime.Null, apperr.Script("hq: compile selector", err)
	}
	node := cascadia.Query(doc, sel)
	if node == nil {
		return runtime.Null, apperr.Script("hq: query failed", apperr.NotFound("css selector", css))
	}
	return runtime.String(innerHTML(node)), nil
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}
