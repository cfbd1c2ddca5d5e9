package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zachkp/marathon-portfolio/internal/config"
	"github.com/Zachkp/marathon-portfolio/internal/tracker"
	"github.com/Zachkp/marathon-portfolio/internal/ws"
)

func newReplayCmd(cfgFile *string) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run recorded scroll messages through the tracker",
		Long: `replay reads one live-stream message per line (the JSON the page sends
over /ws/scroll) and prints the progress state after each one. Every message
is applied; nothing is coalesced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			course, err := cfg.Track()
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			return replay(course, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON-lines file of scroll messages (- for stdin)")
	return cmd
}

func replay(course tracker.Course, r io.Reader, w io.Writer) error {
	session := tracker.NewSession(course)
	enc := json.NewEncoder(w)
	if err := enc.Encode(session.State()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var msg ws.Inbound
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		var st tracker.ProgressState
		switch msg.Type {
		case ws.TypeScroll, "":
			st = session.Observe(msg.Sample(time.Now))
		case ws.TypeJump:
			var err error
			if st, err = session.Jump(msg.Section); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		default:
			return fmt.Errorf("line %d: unknown message type %q", line, msg.Type)
		}
		if err := enc.Encode(st); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
