package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/internal/presentation/tui"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/presentation"
)

// ParseScript splits a comma separated script such as "next,next,back,close".
func ParseScript(script string) []string {
	var out []string
	for _, cmd := range strings.Split(script, ",") {
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}

// Play runs script against the modal experience of rt.
//
// Commands:
//
//	next, back          move one step forward or backward
//	goto:<step-id>      jump to a step by ID
//	index:<n>           jump to a step by flat index
//	set:<block>=<value> answer a form field
//	tap, on:<trigger>   run the current step's actions for a trigger
//	swipe:<page>        page the container as a user would
//	close, complete     end the experience, dismissed or completed
//	exit                close the container as a user would
//	retry               retry a failed step
func Play(ctx context.Context, rt *Runtime, script []string) error {
	engine := rt.Engine
	for _, cmd := range script {
		name, arg, _ := strings.Cut(cmd, ":")
		var err error
		switch name {
		case "next":
			err = engine.StartStep(ctx, lantern.ModalContext, domain.OffsetRef(1))
		case "back":
			err = engine.StartStep(ctx, lantern.ModalContext, domain.OffsetRef(-1))
		case "goto":
			err = engine.StartStep(ctx, lantern.ModalContext, domain.StepIDRef(arg))
		case "index":
			var n int
			if n, err = strconv.Atoi(arg); err == nil {
				err = engine.StartStep(ctx, lantern.ModalContext, domain.IndexRef(n))
			}
		case "set":
			block, value, ok := strings.Cut(arg, "=")
			if !ok {
				err = fmt.Errorf("expected set:<block>=<value>")
				break
			}
			err = engine.SetFormValue(lantern.ModalContext, block, value)
		case "tap", "on":
			trigger := name
			if name == "on" {
				trigger = arg
			}
			err = runTrigger(ctx, engine, trigger)
		case "swipe":
			var page int
			if page, err = strconv.Atoi(arg); err == nil {
				err = withPackage(rt, func(p *presentation.HeadlessPackage) { p.Swipe(ctx, page) })
			}
		case "close":
			err = engine.Dismiss(ctx, lantern.ModalContext, false)
		case "complete":
			err = engine.Dismiss(ctx, lantern.ModalContext, true)
		case "exit":
			err = withPackage(rt, func(p *presentation.HeadlessPackage) { p.UserDismiss(ctx) })
		case "retry":
			err = engine.Retry(ctx, lantern.ModalContext)
		default:
			err = fmt.Errorf("unknown command")
		}
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
	}
	return nil
}

func runTrigger(ctx context.Context, engine *lantern.Engine, trigger string) error {
	done, err := engine.Trigger(ctx, lantern.ModalContext, trigger)
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func withPackage(rt *Runtime, fn func(*presentation.HeadlessPackage)) error {
	p := rt.Headless.Current()
	if p == nil {
		return lantern.ErrNoActiveExperience
	}
	fn(p)
	return nil
}

// TraceObserver prints every transition and failure to w.
func TraceObserver(w io.Writer) lifecycle.Observer {
	styler := tui.NewStyler(w)
	return func(_ context.Context, r lifecycle.Result) {
		if !r.Success() {
			fmt.Fprintln(w, styler.Error("✗ "+r.Err.Error()))
			return
		}
		line := styler.State(r.State.Name())
		if exp := lifecycle.ExperienceOf(r.State); exp != nil {
			line += " " + styler.Faint(exp.ID)
		}
		if idx, ok := lifecycle.StepIndexOf(r.State); ok {
			line += styler.Faint(" @" + idx.String())
		}
		fmt.Fprintln(w, line)
	}
}
