package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

func reportOK(w io.Writer, format string, args ...interface{}) {
	okColor.Fprint(w, "OK")
	fmt.Fprintf(w, "   "+format+"\n", args...)
}

func reportFail(w io.Writer, err error) error {
	failColor.Fprint(w, "FAIL")
	fmt.Fprintf(w, " %v\n", err)
	return err
}
