package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monkeyescape/monkeyescape/internal/config"
	"github.com/monkeyescape/monkeyescape/internal/core/events/bus"
	"github.com/monkeyescape/monkeyescape/internal/core/npc"
	"github.com/monkeyescape/monkeyescape/internal/core/session"
	"github.com/monkeyescape/monkeyescape/internal/injector"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "monkeyescape",
		Short:         "Monkey Escape pursuit simulation server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (defaults are used when empty)")
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	load := func() (config.Config, error) {
		if cfgFile == "" {
			return config.Default(), nil
		}
		return config.Load(cfgFile)
	}

	root.AddCommand(newServeCmd(load), newSimulateCmd(load))
	return root
}

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and stream it to websocket viewers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			srv, cleanup, err := injector.InitializeServer(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override server.listen_addr")
	return cmd
}

// simulationReport is printed by the simulate command.
type simulationReport struct {
	Mode      string   `json:"mode"`
	Variant   string   `json:"variant,omitempty"`
	Ticks     uint64   `json:"ticks"`
	Simulated float64  `json:"simulated_seconds"`
	State     string   `json:"state"`
	Won       bool     `json:"won"`
	Elapsed   float64  `json:"elapsed"`
	Captures  []string `json:"captures"`
}

func newSimulateCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		seconds float64
		variant string
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the simulation headless at fixed steps and print a JSON report",
		Long: "Runs without a viewer. With --variant the chosen monkey is the player " +
			"and receives no input; without it the attract-mode demo runs.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seconds <= 0 {
				return errors.New("--seconds must be positive")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Sim.Seed = seed
			}
			s, cleanup, err := injector.InitializeSession(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			report := simulationReport{Mode: "demo", Captures: []string{}}
			sub, err := s.Bus().Subscribe(session.EventMonkeyCaptured, func(e bus.Event) error {
				if c, ok := e.Data.(session.MonkeyCaptured); ok {
					report.Captures = append(report.Captures, c.Monkey)
				}
				return nil
			})
			if err != nil {
				return err
			}
			defer func() { _ = sub.Cancel() }()

			if variant != "" {
				report.Mode, report.Variant = "play", variant
				if err := s.RequestPlay(); err != nil {
					return err
				}
				if err := s.ChooseVariantName(variant); err != nil {
					return err
				}
			} else if err := s.RequestDemo(); err != nil {
				return err
			}

			dt := cfg.TickInterval().Seconds()
			steps := int(seconds / dt)
			for i := 0; i < steps && cmd.Context().Err() == nil; i++ {
				s.Advance(dt, npc.Input{})
				report.Simulated += dt
				if s.State() == session.GameOver {
					break
				}
			}

			report.Ticks = s.Tick()
			report.State = s.State().String()
			report.Won = s.Won()
			report.Elapsed = s.Elapsed()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&seconds, "seconds", 60, "simulated seconds to run")
	cmd.Flags().StringVar(&variant, "variant", "", "play as Jimi, Adamo or \"El Grande\"")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override sim.seed")
	return cmd
}
