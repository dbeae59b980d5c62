// Command ext2shell opens an ext2 image and drives an interactive
// shell over it: ls/cd/pwd/attr/cat/touch/mkdir/rm/rmdir/cp/rename.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kcodes/ext2shell/internal/ext2fs"
	"github.com/kcodes/ext2shell/internal/shell"
)

var (
	verboseCount  int
	readonlyCheck bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ext2shell <image>",
		Short: "Interactive shell over an ext2 filesystem image",
		Args:  cobra.ExactArgs(1),
		RunE:  runShell,
	}
	root.Flags().CountVarP(&verboseCount, "verbose", "v", "increase log verbosity (-v, -vv)")
	root.Flags().BoolVar(&readonlyCheck, "readonly-check", false, "reject mutating commands instead of executing them")
	return root
}

func runShell(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	switch {
	case verboseCount >= 2:
		log.SetLevel(logrus.TraceLevel)
	case verboseCount == 1:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	eng, err := ext2fs.Open(args[0], log)
	if err != nil {
		return fmt.Errorf("ext2shell: %w", err)
	}
	defer eng.Close()
	eng.ReadOnly = readonlyCheck

	sh, err := shell.New(eng, log)
	if err != nil {
		return err
	}
	return sh.Run()
}
