package lantern_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/pkg/adapters/memory"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/presentation"
)

func Example() {
	loader, err := memory.NewLoader(&domain.Experience{
		ID:   "welcome",
		Name: "Welcome",
		Groups: []domain.StepGroup{{
			ID:    "intro",
			Steps: []domain.Step{{ID: "hello", Content: "# Hello"}, {ID: "bye", Content: "# Bye"}},
		}},
	})
	if err != nil {
		log.Fatal(err)
	}
	headless, err := presentation.NewHeadless(os.Stdout, presentation.WithStyle("notty"))
	if err != nil {
		log.Fatal(err)
	}

	eng, err := lantern.New(
		lantern.WithLoader(loader),
		lantern.WithBuilder(headless),
		lantern.WithObserver(func(_ context.Context, r lifecycle.Result) {
			if r.Success() {
				fmt.Println("->", r.State.Name())
			}
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := eng.Show(ctx, "welcome"); err != nil {
		log.Fatal(err)
	}
	// Moving past the last step completes the experience.
	_ = eng.StartStep(ctx, lantern.ModalContext, domain.OffsetRef(1))
	_ = eng.StartStep(ctx, lantern.ModalContext, domain.OffsetRef(1))
}
