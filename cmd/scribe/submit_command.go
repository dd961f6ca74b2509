package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/spf13/cobra"

	"scribe/internal/protocol"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		sampleRate uint32
		channels   uint8
		priority   int32
		endpoint   string
	)

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Submit raw audio for transcription",
		Long: "Submit reads 32-bit little-endian float samples from the given file " +
			"(or stdin when the file is \"-\") and pushes them to the daemon's job " +
			"channel. The job ID is printed on success; the transcript arrives on " +
			"the result channel.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := readSamples(args[0])
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				return errors.New("audio file contains no samples")
			}

			target := endpoint
			if target == "" {
				cfg := ctx.configValue()
				if cfg == nil {
					return errors.New("no configuration available")
				}
				target = cfg.Transport.JobEndpoint
			}

			chunk := protocol.NewAudioChunk(samples, sampleRate, channels)
			env := protocol.NewJobEnvelope(chunk, priority)
			raw, err := protocol.EncodeEnvelope(&env)
			if err != nil {
				return fmt.Errorf("encode job: %w", err)
			}

			sendCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			sock := zmq4.NewPush(sendCtx)
			defer sock.Close()
			if err := sock.Dial(target); err != nil {
				return fmt.Errorf("connect to job channel %s: %w", target, err)
			}
			if err := sock.Send(zmq4.NewMsg(raw)); err != nil {
				return fmt.Errorf("send job: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%d samples, priority %d)\n",
				env.ID, len(samples), priority)
			return nil
		},
	}

	cmd.Flags().Uint32Var(&sampleRate, "rate", 16000, "Sample rate of the audio in Hz")
	cmd.Flags().Uint8Var(&channels, "channels", 1, "Number of interleaved channels")
	cmd.Flags().Int32Var(&priority, "priority", 0, "Job priority (lower runs first)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Job channel endpoint (defaults to the configured one)")

	return cmd
}

// readSamples loads f32le samples from a file or stdin.
func readSamples(path string) ([]float32, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open audio file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("audio length %d is not a multiple of 4 bytes (expected f32le samples)", len(raw))
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}
