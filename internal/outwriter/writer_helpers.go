package outwriter

import (
	"fmt"
	"io"
	"os"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) (err error) {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

func statusLabel(status schema.FileStatus, useColors bool) string {
	if useColors {
		return contract.GetColorStatusLabel(status)
	}
	return contract.GetPlainStatusLabel(status)
}

func changeLabel(kind schema.ChangeKind, useColors bool) string {
	if useColors {
		return contract.GetColorChangeLabel(kind)
	}
	return string(kind)
}
