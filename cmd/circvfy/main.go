// Command circvfy runs differential verification suites: each case's byte
// sequence executes under a reference provider and a subject provider, and
// the outcomes are reconciled against the author's expected delta.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gsoc2/circuitous/asm"
	"github.com/gsoc2/circuitous/asm/keystone"
	"github.com/gsoc2/circuitous/defs"
	"github.com/gsoc2/circuitous/interp"
	"github.com/gsoc2/circuitous/provider"
	"github.com/gsoc2/circuitous/provider/unicorn"
	"github.com/gsoc2/circuitous/verify"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "circvfy",
		Short:         "Differential verification of machine-instruction semantics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		tags          []string
		workers       int
		timeout       time.Duration
		stopOnFailure bool
		encoderName   string
		referenceName string
		subjectName   string
		verbose       bool
	)

	runCmd := &cobra.Command{
		Use:   "run [defs.star...]",
		Short: "Load suite definitions and evaluate them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := makeEncoder(encoderName, verbose)
			if err != nil {
				return err
			}
			reference, err := makeProvider(referenceName, verbose)
			if err != nil {
				return err
			}
			subject, err := makeProvider(subjectName, verbose)
			if err != nil {
				return err
			}

			registry := verify.NewRegistry()
			loader := &defs.Loader{Encoder: enc, Verbose: verbose}
			if err := loader.Load(registry, args...); err != nil {
				return err
			}

			runner := &verify.Runner{
				Reference:     reference,
				Subject:       subject,
				Workers:       workers,
				Timeout:       timeout,
				StopOnFailure: stopOnFailure,
				Verbose:       verbose,
			}
			report, err := runner.Run(cmd.Context(), registry.Select(tags...))
			if err != nil {
				return err
			}

			report.Render(os.Stdout)
			if !report.OK() {
				return fmt.Errorf("verification failed")
			}
			return nil
		},
	}
	runCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Run only suites carrying any of these tags")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Number of workers (0 = NumCPU)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Wall-clock budget per provider invocation")
	runCmd.Flags().BoolVar(&stopOnFailure, "stop-on-failure", false, "Cancel remaining cases after the first failure")
	runCmd.Flags().StringVar(&encoderName, "encoder", "intel", "Assembly encoder (intel, keystone)")
	runCmd.Flags().StringVar(&referenceName, "reference", "interp", "Reference provider (interp, unicorn)")
	runCmd.Flags().StringVar(&subjectName, "subject", "unicorn", "Subject provider (interp, unicorn)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	listCmd := &cobra.Command{
		Use:   "list [defs.star...]",
		Short: "Load suite definitions and list them without running",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := makeEncoder(encoderName, verbose)
			if err != nil {
				return err
			}
			registry := verify.NewRegistry()
			loader := &defs.Loader{Encoder: enc, Verbose: verbose}
			if err := loader.Load(registry, args...); err != nil {
				return err
			}
			for s := range registry.Select(tags...) {
				fmt.Printf("%v: %d cases", s.Name(), len(s.Cases()))
				if t := s.Tags(); len(t) > 0 {
					fmt.Printf(" [%v]", strings.Join(t, ", "))
				}
				if lines := s.Lines(); len(lines) > 0 {
					fmt.Printf(" (%v)", strings.Join(lines, "; "))
				}
				fmt.Println()
			}
			return nil
		},
	}
	listCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "List only suites carrying any of these tags")
	listCmd.Flags().StringVar(&encoderName, "encoder", "intel", "Assembly encoder (intel, keystone)")
	listCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(runCmd, listCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "circvfy: %v\n", err)
		os.Exit(1)
	}
}

func makeEncoder(name string, verbose bool) (asm.Encoder, error) {
	switch name {
	case "intel":
		return &asm.Intel{Verbose: verbose}, nil
	case "keystone":
		return keystone.New(), nil
	}
	return nil, fmt.Errorf("unknown encoder: %s", name)
}

func makeProvider(name string, verbose bool) (provider.Provider, error) {
	switch name {
	case "interp":
		return &interp.Interp{Verbose: verbose}, nil
	case "unicorn":
		return unicorn.New(), nil
	}
	return nil, fmt.Errorf("unknown provider: %s", name)
}
