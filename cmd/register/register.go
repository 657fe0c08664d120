package register

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/gigurra/aegis/cmd/common"
	"github.com/gigurra/aegis/cmd/common/config"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

type Params struct {
	QR     bool `short:"q" optional:"true" help:"Render the link as a QR code"`
	Invert bool `short:"i" optional:"true" help:"Invert QR colors (white on black)"`
	Copy   bool `short:"c" optional:"true" help:"Copy the link to the clipboard"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "register",
		Short:       "Show the conference registration link",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "register: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

func run(params *Params, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	conf := cfg.Conference
	link := conf.RegistrationURL

	fmt.Fprintf(out, "Register for %s: %s\n", conf.Name, link)
	if params.QR {
		if err := renderQR(out, link, params.Invert); err != nil {
			return err
		}
	}
	if params.Copy {
		if err := copyToClipboard(link); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		fmt.Fprintln(out, "Link copied to clipboard")
	}
	return nil
}

// renderQR draws text as a QR code with two-cell ANSI blocks per module.
func renderQR(out io.Writer, text string, invert bool) error {
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("generating qr code: %w", err)
	}

	dark, light := "\033[40m  \033[0m", "\033[47m  \033[0m"
	if invert {
		dark, light = light, dark
	}

	var b strings.Builder
	for _, row := range qr.Bitmap() {
		for _, set := range row {
			if set {
				b.WriteString(dark)
			} else {
				b.WriteString(light)
			}
		}
		b.WriteString("\033[0m\n")
	}
	_, err = io.WriteString(out, b.String())
	return err
}
