// Command gcstat is a small inspection CLI over a gctest.Context, in the
// spirit of golang-debug's viewcore: rather than opening a core dump, it
// builds a demo class graph (a self-referential linked list) and lets you
// allocate, collect, and inspect it interactively.
//
// This is demo/ambient tooling, not part of the collector's own package: it
// gives github.com/spf13/cobra and github.com/chzyer/readline a concrete
// home for driving the collector from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/luiscubal/gctest/internal/types"

	gctest "github.com/luiscubal/gctest"
)

// demo bundles a ready-to-use Context with the class/type handles needed to
// allocate nodes from the interactive commands.
type demo struct {
	ctx      *gctest.Context
	linkType types.TypeId
	nextF    *types.Field
	valueF   *types.Field
}

// newDemo registers a "Link" class with a self-referential "next" field and
// an i32 "value" field, computes layout, and prepares statics before any
// allocation happens.
func newDemo() *demo {
	store := types.NewStore()
	link := store.RegisterClass("demo.Link", nil)
	valueF := store.AddField(link, store.Int32Type(), false, true)
	nextF := store.AddField(link, store.ClassType(link), false, true)
	store.ComputeSizes()
	store.ComputeStaticSizes()

	ctx := gctest.NewContext(store, gctest.Config{InitialSegments: 1})
	ctx.PrepareStatics()

	return &demo{
		ctx:      ctx,
		linkType: store.ClassType(link),
		nextF:    nextF,
		valueF:   valueF,
	}
}

func main() {
	d := newDemo()

	root := &cobra.Command{
		Use:   "gcstat",
		Short: "Inspect a gctest collector instance running a small demo object graph",
	}

	root.AddCommand(
		headersCmd(d),
		statsCmd(d),
		allocCmd(d),
		gcCmd(d),
		replCmd(d),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func headersCmd(d *demo) *cobra.Command {
	return &cobra.Command{
		Use:   "headers",
		Short: "Print every registered class's layout",
		Run: func(cmd *cobra.Command, args []string) {
			d.ctx.LogHeaders(os.Stdout)
		},
	}
}

func statsCmd(d *demo) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print current heap occupancy and lifetime counters",
		Run: func(cmd *cobra.Command, args []string) {
			d.ctx.LogStats(os.Stdout)
		},
	}
}

func allocCmd(d *demo) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Allocate N throwaway Link instances, then print stats",
		Run: func(cmd *cobra.Command, args []string) {
			for i := 0; i < count; i++ {
				d.ctx.AllocClass(d.linkType)
			}
			d.ctx.LogStats(os.Stdout)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of instances to allocate")
	return cmd
}

func gcCmd(d *demo) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Force an immediate collection, then print stats",
		Run: func(cmd *cobra.Command, args []string) {
			d.ctx.ForceGC(gctest.ThreadID(0))
			d.ctx.LogStats(os.Stdout)
		},
	}
}

// replCmd starts an interactive readline-backed session accepting the
// commands headers, stats, alloc, gc and quit (or exit). Each line must be
// exactly one command word: flags are not parsed, so alloc allocates a
// single instance.
func replCmd(d *demo) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Run: func(cmd *cobra.Command, args []string) {
			rl, err := readline.New("gcstat> ")
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer rl.Close()

			for {
				line, err := rl.Readline()
				if err != nil {
					return
				}
				switch line {
				case "headers":
					d.ctx.LogHeaders(os.Stdout)
				case "stats":
					d.ctx.LogStats(os.Stdout)
				case "alloc":
					d.ctx.AllocClass(d.linkType)
					d.ctx.LogStats(os.Stdout)
				case "gc":
					d.ctx.ForceGC(gctest.ThreadID(0))
					d.ctx.LogStats(os.Stdout)
				case "quit", "exit":
					return
				case "":
					// ignore blank lines
				default:
					fmt.Fprintf(os.Stdout, "unknown command %q (try headers, stats, alloc, gc, quit)\n", line)
				}
			}
		},
	}
}
