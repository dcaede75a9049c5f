package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/services/adc"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newReportCommand(e *env) *cobra.Command {
	var tables bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the status of every chip and channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withDriver(cmd.Context(), func(d *adc.Driver) error {
				return d.WriteReport(cmd.OutOrStdout(), tables)
			})
		},
	}
	cmd.Flags().BoolVar(&tables, "tables", false, "include mode and command code tables")
	return cmd
}

func newReadCommand(e *env) *cobra.Command {
	var (
		format   string
		count    int
		nonBlock bool
		alarm    bool
	)
	cmd := &cobra.Command{
		Use:   "read <channel>",
		Short: "Read samples from a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags adc.OpenFlags
			if nonBlock {
				flags |= adc.OpenNonBlock
			}
			return e.withHandle(cmd.Context(), args[0], flags, func(d *adc.Driver, h *adc.Handle) error {
				f, err := applyFormat(h, format)
				if err != nil {
					return err
				}
				if alarm {
					if err := h.Ioctl(adc.CmdAlarmEnable, nil); err != nil {
						return err
					}
				}
				for i := 0; count <= 0 || i < count; i++ {
					rec, err := readRecord(cmd.Context(), h)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), render(rec, f))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: bin, dec or hex")
	cmd.Flags().IntVar(&count, "count", 1, "samples to read; 0 reads until interrupted")
	cmd.Flags().BoolVar(&nonBlock, "nonblock", false, "fail instead of waiting for the next alarm")
	cmd.Flags().BoolVar(&alarm, "alarm", false, "enable the channel alarm before reading")
	return cmd
}

func newWatchCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <channel>",
		Short: "Enable the channel alarm and print a sample on every notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return e.withHandle(ctx, args[0], adc.OpenNonBlock, func(d *adc.Driver, h *adc.Handle) error {
				f := ads7924.FormatBinary
				if ct, ok := h.Target().(*adc.ChannelTarget); ok {
					f = ct.Channel().Format()
				}
				if err := h.Ioctl(adc.CmdAlarmEnable, nil); err != nil {
					return err
				}
				for {
					ready, wake := h.Poll()
					if !ready {
						select {
						case <-ctx.Done():
							return nil
						case <-wake:
							continue
						}
					}
					rec, err := readRecord(ctx, h)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), render(rec, f))
				}
			})
		},
	}
	return cmd
}

func newModeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "mode", Short: "Get or set the chip operating mode"}
	cmd.AddCommand(&cobra.Command{
		Use:  "get <chip>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				out := []byte{0}
				if err := h.Ioctl(adc.CmdGetMode, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "0x%02X %s\n", out[0], ads7924.Mode(out[0]))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "set <chip> <mode>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := ads7924.ParseMode(strings.ToUpper(args[1]))
			if !ok {
				return errors.Errorf("unknown mode %q", args[1])
			}
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				return h.Ioctl(adc.CmdSetMode, []byte{byte(m)})
			})
		},
	})
	return cmd
}

type regCodes struct{ set, get, edit adc.Opcode }

var regCommands = map[string]regCodes{
	"intconfig": {adc.CmdSetIntConfig, adc.CmdGetIntConfig, adc.CmdEditIntCfg},
	"slpconfig": {adc.CmdSetSlpConfig, adc.CmdGetSlpConfig, adc.CmdEditSlpCfg},
	"acqconfig": {adc.CmdSetAcqConfig, adc.CmdGetAcqConfig, adc.CmdEditAcqCfg},
	"pwrconfig": {adc.CmdSetPwrConfig, adc.CmdGetPwrConfig, adc.CmdEditPwrCfg},
}

func lookupReg(name string) (regCodes, error) {
	rc, ok := regCommands[strings.ToLower(name)]
	if !ok {
		return regCodes{}, errors.Errorf("unknown register %q (intconfig, slpconfig, acqconfig, pwrconfig)", name)
	}
	return rc, nil
}

func newRegCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "reg", Short: "Access the chip configuration registers"}
	cmd.AddCommand(&cobra.Command{
		Use:  "get <chip> <reg>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := lookupReg(args[1])
			if err != nil {
				return err
			}
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				out := []byte{0}
				if err := h.Ioctl(rc.get, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "0x%02X\n", out[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "set <chip> <reg> <value>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := lookupReg(args[1])
			if err != nil {
				return err
			}
			v, err := parseByte(args[2])
			if err != nil {
				return err
			}
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				return h.Ioctl(rc.set, []byte{v})
			})
		},
	})

	var setBits, clearBits string
	edit := &cobra.Command{
		Use:  "edit <chip> <reg>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := lookupReg(args[1])
			if err != nil {
				return err
			}
			s, err := parseByte(setBits)
			if err != nil {
				return err
			}
			c, err := parseByte(clearBits)
			if err != nil {
				return err
			}
			be := adc.BitEdit{Clear: adc.BitAccess(c), Set: adc.BitAccess(s)}
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				return h.Ioctl(rc.edit, be.Bytes())
			})
		},
	}
	edit.Flags().StringVar(&setBits, "set", "0", "bits to set")
	edit.Flags().StringVar(&clearBits, "clear", "0", "bits to clear")
	cmd.AddCommand(edit)
	return cmd
}

func limitCodes(kind string) (get, set adc.Opcode, err error) {
	switch kind {
	case "upper":
		return adc.CmdGetULR, adc.CmdSetULR, nil
	case "lower":
		return adc.CmdGetLLR, adc.CmdSetLLR, nil
	}
	return 0, 0, errors.Errorf("limit %q: want upper or lower", kind)
}

func newLimitCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "limit", Short: "Get or set a channel alarm threshold"}
	cmd.AddCommand(&cobra.Command{
		Use:  "get <channel> <upper|lower>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			get, _, err := limitCodes(args[1])
			if err != nil {
				return err
			}
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				out := []byte{0}
				if err := h.Ioctl(get, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "0x%02X\n", out[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "set <channel> <upper|lower> <value>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, set, err := limitCodes(args[1])
			if err != nil {
				return err
			}
			v, err := parseByte(args[2])
			if err != nil {
				return err
			}
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				return h.Ioctl(set, []byte{v})
			})
		},
	})
	return cmd
}

func newAlarmCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "alarm", Short: "Enable or disable a channel alarm"}
	for _, c := range []struct {
		use  string
		code adc.Opcode
	}{
		{"enable <channel>", adc.CmdAlarmEnable},
		{"disable <channel>", adc.CmdAlarmDisable},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:  c.use,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
					return h.Ioctl(c.code, nil)
				})
			},
		})
	}
	return cmd
}

func newResetCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <chip>",
		Short: "Reset a chip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				return h.Ioctl(adc.CmdReset, nil)
			})
		},
	}
}

func newFormatCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "format <channel> <bin|dec|hex>",
		Short: "Select the output format of a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withHandle(cmd.Context(), args[0], 0, func(_ *adc.Driver, h *adc.Handle) error {
				_, err := applyFormat(h, args[1])
				return err
			})
		},
	}
}

func newOpcodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "opcodes",
		Short: "List command codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, o := range adc.Opcodes() {
				kind := "chip"
				if o.Channel {
					kind = "channel"
				}
				fmt.Fprintf(out, "0x%08X  %-7s  %-15s %s\n", uint32(o.Code), kind, o.Name, o.Code)
			}
			return nil
		},
	}
}

var formatCodes = map[ads7924.Format]adc.Opcode{
	ads7924.FormatBinary:  adc.CmdReadModeBin,
	ads7924.FormatDecimal: adc.CmdReadModeDec,
	ads7924.FormatHex:     adc.CmdReadModeHex,
}

// applyFormat switches the channel format when name is set and returns the
// format in effect.
func applyFormat(h *adc.Handle, name string) (ads7924.Format, error) {
	ct, ok := h.Target().(*adc.ChannelTarget)
	if !ok {
		return 0, errors.Errorf("%s is not a channel", h.Target().Name())
	}
	if name == "" {
		return ct.Channel().Format(), nil
	}
	f, ok := ads7924.ParseFormat(name)
	if !ok {
		return 0, errors.Errorf("unknown format %q", name)
	}
	return f, h.Ioctl(formatCodes[f], nil)
}

// readRecord reads one complete sample, up to the end-of-record marker.
func readRecord(ctx context.Context, h *adc.Handle) ([]byte, error) {
	var rec []byte
	p := make([]byte, ads7924.MaxFormatted)
	for {
		n, err := h.Read(ctx, p)
		rec = append(rec, p[:n]...)
		if err == io.EOF {
			return rec, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func render(rec []byte, f ads7924.Format) string {
	switch f {
	case ads7924.FormatBinary:
		if len(rec) == 2 {
			v := binary.NativeEndian.Uint16(rec)
			return fmt.Sprintf("%d (0x%03X)", v, v)
		}
		return fmt.Sprintf("% x", rec)
	default:
		return strings.TrimRight(string(rec), "\x00")
	}
}
