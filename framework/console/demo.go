package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-fenix/framework/binding"
	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/reactive"
)

type demoCmd struct{}

func (c *demoCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through registration, dependencies and removal",
		Args:  cobra.NoArgs,
	}
}

func (c *demoCmd) run(cmd *cobra.Command, _ []string) error {
	return runDemo(cmd.Context(), cmd.OutOrStdout())
}

type demoAPI struct {
	out io.Writer
}

func (a *demoAPI) Dispose() { fmt.Fprintln(a.out, "  api disposed") }

type demoRepo struct {
	api *demoAPI
	out io.Writer
}

func (r *demoRepo) Dispose() { fmt.Fprintln(r.out, "  repo disposed") }

// session closes asynchronously, like a network client would.
type session struct {
	out io.Writer
}

func (s *session) DisposeAsync(context.Context) error {
	fmt.Fprintln(s.out, "  session closed")
	return nil
}

func runDemo(ctx context.Context, out io.Writer) error {
	c := container.New()
	step := func(format string, args ...any) {
		fmt.Fprintf(out, "-> "+format+"\n", args...)
	}

	step("register api#a and a lazy repo#r that needs it")
	if _, err := container.Provide(c, "a", &demoAPI{out: out}); err != nil {
		return err
	}
	err := container.ProvideLazy(c, "r", func(c *container.Container) (*demoRepo, error) {
		api, err := container.Get[*demoAPI](c, "a")
		if err != nil {
			return nil, err
		}
		return &demoRepo{api: api, out: out}, nil
	})
	if err != nil {
		return err
	}
	if err := container.DependsOn[*demoRepo, *demoAPI](c, "r", "a"); err != nil {
		return err
	}

	step("remove api#a while repo#r is not built yet")
	if _, err := c.RemoveByTag("a"); err != nil {
		return err
	}
	step("  removed; register api#a again")
	if _, err := container.Provide(c, "a", &demoAPI{out: out}); err != nil {
		return err
	}
	if err := container.DependsOn[*demoRepo, *demoAPI](c, "r", "a"); err != nil {
		return err
	}

	step("resolve repo#r")
	if _, err := container.Get[*demoRepo](c, "r"); err != nil {
		return err
	}

	step("remove api#a while repo#r is live")
	_, err = container.Drop[*demoAPI](c, "a")
	var ke *container.KeyError
	if !errors.As(err, &ke) || !errors.Is(err, container.ErrStillDepended) {
		return fmt.Errorf("expected a still-depended error, got %v", err)
	}
	step("  refused, dependents: %v", ke.Dependents)

	step("remove repo#r, then api#a")
	if _, err := container.Drop[*demoRepo](c, "r"); err != nil {
		return err
	}
	if _, err := container.Drop[*demoAPI](c, "a"); err != nil {
		return err
	}

	step("bind a listener to a reactive counter with auto cleanup")
	if _, err := container.Provide(c, "counter", reactive.New(0)); err != nil {
		return err
	}
	b := binding.New(c, binding.AutoCleanup())
	h, err := binding.Acquire[int](b, "counter", func(n int) {
		fmt.Fprintf(out, "  counter = %d\n", n)
	})
	if err != nil {
		return err
	}
	counter := container.MustGet[*reactive.Value[int]](c, "counter")
	if err := counter.Set(1); err != nil {
		return err
	}
	if err := counter.Batch().Apply(func(n int) int { return n + 1 }).Apply(func(n int) int { return n * 10 }).Commit(); err != nil {
		return err
	}
	if err := h.Release(); err != nil {
		return err
	}
	step("  released; counter registered: %t", c.IsRegistered(container.KeyOf[*reactive.Value[int]]("counter")))

	step("register an async session and close the registry")
	if _, err := container.Provide(c, "", &session{out: out}); err != nil {
		return err
	}
	if err := c.RemoveAll(); err != nil {
		step("  sync teardown refused: %v", err)
	}
	if err := c.Close(ctx); err != nil {
		return err
	}
	step("done, keys left: %d", len(c.Keys()))
	return nil
}
