package shell

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"

	"github.com/kcodes/ext2shell/internal/ext2fs"
	"github.com/kcodes/ext2shell/internal/shellfmt"
)

// Shell is the interactive read-eval-print loop over an ext2fs.Engine.
type Shell struct {
	eng *ext2fs.Engine
	rl  *readline.Instance
	log logrus.FieldLogger
	out io.Writer
}

// New builds a Shell over eng, configuring readline with a prompt that
// is refreshed before every read.
func New(eng *ext2fs.Engine, log logrus.FieldLogger) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt(eng),
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Shell{eng: eng, rl: rl, log: log, out: os.Stdout}, nil
}

func prompt(eng *ext2fs.Engine) string {
	return fmt.Sprintf("[%s]$> ", eng.Pwd())
}

// Run loops reading and dispatching commands until "exit" or EOF.
func (s *Shell) Run() error {
	defer s.rl.Close()
	fmt.Fprintln(s.out, "ext2shell initialized. Type 'exit' to quit.")
	for {
		s.rl.SetPrompt(prompt(s.eng))
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}
		s.dispatch(line)
	}
	fmt.Fprintln(s.out, "Exiting shell.")
	return nil
}

func (s *Shell) dispatch(line string) {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return
	}
	cmd, args := tokens[0], tokens[1:]

	var err error
	switch {
	case cmd == "info" && len(args) == 0:
		err = s.cmdInfo()
	case cmd == "ls" && len(args) == 0:
		err = s.cmdLs(false)
	case cmd == "ls" && len(args) == 1 && args[0] == "-l":
		err = s.cmdLs(true)
	case cmd == "pwd" && len(args) == 0:
		fmt.Fprintln(s.out, s.eng.Pwd())
	case cmd == "cd" && len(args) == 1:
		err = s.eng.Cd(args[0])
	case cmd == "attr" && len(args) == 1:
		err = s.cmdAttr(args[0])
	case cmd == "cat" && len(args) == 1:
		err = s.eng.Cat(args[0], s.out)
	case cmd == "touch" && len(args) == 1:
		err = s.cmdTouch(args[0])
	case cmd == "mkdir" && len(args) == 1:
		err = s.cmdMkdir(args[0])
	case cmd == "rm" && len(args) == 1:
		err = s.cmdRm(args[0])
	case cmd == "rmdir" && len(args) == 1:
		err = s.cmdRmdir(args[0])
	case cmd == "cp" && len(args) == 2:
		err = s.cmdCp(args[0], args[1])
	case cmd == "rename" && len(args) == 2:
		err = s.cmdRename(args[0], args[1])
	default:
		fmt.Fprintln(os.Stderr, "Error: unknown command or incorrect arguments.")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (s *Shell) cmdInfo() error {
	info := s.eng.Info()
	fmt.Fprintf(s.out, "Volume name.....: %s\n", info.VolumeName)
	fmt.Fprintf(s.out, "Image size......: %s\n", shellfmt.Size(info.TotalBytes))
	fmt.Fprintf(s.out, "Free space......: %s\n", shellfmt.Size(info.FreeBytes))
	fmt.Fprintf(s.out, "Free inodes.....: %d\n", info.FreeInodes)
	fmt.Fprintf(s.out, "Block size......: %d bytes\n", info.BlockSize)
	fmt.Fprintf(s.out, "Groups count....: %d\n", info.GroupCount)
	fmt.Fprintf(s.out, "Inode count.....: %d\n", info.InodeCount)
	fmt.Fprintf(s.out, "Free inodes %%...: %.2f%%\n", info.FreeInodePercent)
	return nil
}

func (s *Shell) cmdLs(verbose bool) error {
	entries, err := s.eng.Ls()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !verbose {
			fmt.Fprintln(s.out, e.Name)
			continue
		}
		fmt.Fprintf(s.out, "%d %s %s\n", e.Inode, shellfmt.FileType(e.FileType), e.Name)
	}
	return nil
}

func (s *Shell) cmdAttr(name string) error {
	a, err := s.eng.Attr(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "permissions uid gid size modified inode links")
	fmt.Fprintf(s.out, "%s %d %d %s %s %d %d\n",
		shellfmt.Mode(a.Mode, a.Kind), a.UID, a.GID, shellfmt.Size(uint64(a.Size)), shellfmt.Time(a.MTime),
		a.Inode, a.LinksCount)
	return nil
}

func (s *Shell) cmdTouch(name string) error {
	if err := s.eng.Touch(name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "File '%s' created successfully.\n", name)
	return nil
}

func (s *Shell) cmdMkdir(name string) error {
	if err := s.eng.Mkdir(name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Directory '%s' created successfully.\n", name)
	return nil
}

func (s *Shell) cmdRm(name string) error {
	if err := s.eng.Rm(name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "File '%s' removed.\n", name)
	return nil
}

func (s *Shell) cmdRmdir(name string) error {
	if err := s.eng.Rmdir(name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Directory '%s' removed.\n", name)
	return nil
}

func (s *Shell) cmdCp(source, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := s.eng.Cp(source, f); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "File '%s' copied to '%s'.\n", source, dest)
	return nil
}

func (s *Shell) cmdRename(oldName, newName string) error {
	if err := s.eng.Rename(oldName, newName); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Renamed '%s' to '%s'.\n", oldName, newName)
	return nil
}
