package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sensorspace/internal/codec"
	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
	"github.com/nerrad567/sensorspace/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorspace/internal/reading"
)

type convertOptions struct {
	From         string
	To           string
	DeviceID     uint32
	TempSensorID uint32
	Publish      bool
	Location     string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Decode readings and print them in another format",
		Long: `Decode a reading from file (or stdin when file is "-" or omitted),
validate it and print the re-encoded reading on stdout. CC128 input may be
a captured serial stream; every realtime frame in it is converted and
history frames are skipped.

With --publish the encoded reading is also sent to
sensorspace/reading/{location}/{device-id}/{device-name} on the configured
MQTT broker.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck // read-only file
				in = f
			}
			return runConvert(cmd.Context(), rootOpts, opts, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "json", "input format (json|ini|cc128)")
	cmd.Flags().StringVar(&opts.To, "to", "json", "output format (json|ini)")
	cmd.Flags().Uint32Var(&opts.DeviceID, "device-id", 0, "device id for cc128 input")
	cmd.Flags().Uint32Var(&opts.TempSensorID, "temp-sensor-id", 0, "sensor id of the cc128 thermometer")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "publish the encoded reading to MQTT")
	cmd.Flags().StringVar(&opts.Location, "location", "default", "location level of the publish topic")

	return cmd
}

func runConvert(ctx context.Context, rootOpts *RootOptions, opts *convertOptions, in io.Reader, out, errOut io.Writer) error {
	from, err := codec.ParseFormat(opts.From)
	if err != nil {
		return err
	}
	to, err := codec.ParseFormat(opts.To)
	if err != nil {
		return err
	}

	buf, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var frames [][]byte
	if from == codec.FormatCC128 {
		frames, err = splitCC128(buf)
		if err != nil {
			return err
		}
	} else {
		frames = [][]byte{buf}
	}

	var publish func(*reading.Reading, []byte) error
	if opts.Publish {
		client, log, closeFn, err := connectPublisher(ctx, rootOpts, errOut)
		if err != nil {
			return err
		}
		defer closeFn()
		publish = func(r *reading.Reading, payload []byte) error {
			return publishReading(ctx, client, log, opts.Location, r, payload)
		}
	}

	converted := 0
	for _, frame := range frames {
		err := convertOne(opts, from, to, frame, out, publish)
		if from == codec.FormatCC128 && errors.Is(err, codec.ErrNoMatch) {
			continue
		}
		if err != nil {
			return err
		}
		converted++
	}
	if converted == 0 {
		return fmt.Errorf("decoding %s: %w", from, codec.ErrNoMatch)
	}
	return nil
}

// splitCC128 cuts a captured serial stream into complete <msg> frames.
func splitCC128(buf []byte) ([][]byte, error) {
	acc := codec.NewCC128Accumulator(len(buf) + 1)
	if _, err := acc.Write(buf); err != nil {
		return nil, err
	}
	var frames [][]byte
	for {
		frame, ok := acc.Next()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("decoding cc128: %w: no complete frame", codec.ErrMalformed)
	}
	return frames, nil
}

func convertOne(opts *convertOptions, from, to codec.Format, buf []byte, out io.Writer, publish func(*reading.Reading, []byte) error) error {
	r := reading.New()
	defer r.Release()

	var err error
	if from == codec.FormatCC128 {
		err = codec.CC128{DeviceID: opts.DeviceID, TempSensorID: opts.TempSensorID}.Decode(r, buf)
	} else {
		err = codec.Decode(from, r, buf)
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", from, err)
	}
	if errs := r.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid reading: %w", errors.Join(errs...))
	}

	encoded, err := codec.Append(to, nil, r)
	if err != nil {
		return err
	}
	if _, err := out.Write(encoded); err != nil {
		return err
	}
	if to == codec.FormatJSON {
		if _, err := io.WriteString(out, "\n"); err != nil {
			return err
		}
	}

	if publish == nil {
		return nil
	}
	return publish(r, encoded)
}

func connectPublisher(ctx context.Context, rootOpts *RootOptions, errOut io.Writer) (*mqtt.Client, *logging.Logger, func(), error) {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger(rootOpts, cfg, errOut)

	client, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	closeFn := func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}
	return client, log, closeFn, nil
}

func publishReading(ctx context.Context, client *mqtt.Client, log *logging.Logger, location string, r *reading.Reading, payload []byte) error {
	topic := mqtt.Topics{}.Reading(location, strconv.FormatUint(uint64(r.DeviceID), 10), r.Name)
	if err := client.PublishDefault(ctx, topic, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	log.Info("reading published", "topic", topic, "bytes", len(payload))
	return nil
}
