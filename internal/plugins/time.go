package plugins

import (
	"strings"
	"time"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// TimePlugin registers today(fmt), the strftime-flavored clock builtin
// grounded on original_source's imports/time.rs Today callable.
type TimePlugin struct{}

func (TimePlugin) Register(ctx *runtime.Context) {
	ctx.Insert("today", runtime.Callable(runtime.AsyncFunc(todayCall)))
}

func todayCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("today(fmt) takes exactly one argument")
	}
	format, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	return runtime.String(time.Now().Format(strftimeToGo(format))), nil
}

// strftimeToGo translates the common strftime directives the original
// script authors relied on into Go's reference-time layout, since the
// template language is otherwise string-oriented and strftime is the
// format authors already know from the source implementation.
func strftimeToGo(format string) string {
	replacer := strings.NewReplacer(
		"%Y", "2006",
		"%y", "06",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%B", "January",
		"%b", "Jan",
		"%A", "Monday",
		"%a", "Mon",
		"%%", "%",
	)
	return replacer.Replace(format)
}
