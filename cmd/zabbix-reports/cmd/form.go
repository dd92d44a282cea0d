package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/akmatori/zabbix-reports/internal/reports"
	"github.com/akmatori/zabbix-reports/internal/settings"
	"github.com/akmatori/zabbix-reports/internal/triggers"
)

// form mirrors the input fields of an export
type form struct {
	Server             string
	User               string
	Password           string
	Group              string
	Host               string
	StartDate          string
	EndDate            string
	DueDate            string
	UserIDs            string
	ErrorsOnly         bool
	FetchAllAttributes bool

	Output      string
	Interactive bool
}

// field describes one prompt, exactly one of str and flag is set
type field struct {
	name   string
	label  string
	str    *string
	flag   *bool
	secret bool
}

func (f *form) fields() []field {
	return []field{
		{name: "server", label: "Zabbix URL", str: &f.Server},
		{name: "user", label: "Username", str: &f.User},
		{name: "password", label: "Password", str: &f.Password, secret: true},
		{name: "group", label: "Group", str: &f.Group},
		{name: "host", label: "Host", str: &f.Host},
		{name: "start-date", label: "Start Date (YYYY-MM-DD)", str: &f.StartDate},
		{name: "end-date", label: "End Date (YYYY-MM-DD)", str: &f.EndDate},
		{name: "due-date", label: "Due Date (YYYY-MM-DD)", str: &f.DueDate},
		{name: "user-ids", label: "User IDs (comma separated)", str: &f.UserIDs},
		{name: "errors-only", label: "Errors only", flag: &f.ErrorsOnly},
		{name: "fetch-all-attributes", label: "Fetch all attributes", flag: &f.FetchAllAttributes},
	}
}

// bind registers one flag per field
func (f *form) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	for _, fd := range f.fields() {
		if fd.flag != nil {
			flags.BoolVar(fd.flag, fd.name, false, fd.label)
		} else {
			flags.StringVar(fd.str, fd.name, "", fd.label)
		}
	}
	flags.BoolVarP(&f.Interactive, "interactive", "i", false, "prompt for every field")
}

// fill copies stored values into every flag the operator did not set
func (f *form) fill(cmd *cobra.Command, rec settings.Record) {
	stored := settingsForm(rec)
	mine := f.fields()
	theirs := stored.fields()
	for i, fd := range mine {
		if cmd.Flags().Changed(fd.name) {
			continue
		}
		if fd.flag != nil {
			*fd.flag = *theirs[i].flag
		} else {
			*fd.str = *theirs[i].str
		}
	}
}

func settingsForm(rec settings.Record) *form {
	return &form{
		Server:             rec.Server,
		User:               rec.User,
		Password:           rec.Password,
		Group:              rec.Group,
		Host:               rec.Host,
		StartDate:          rec.StartDate,
		EndDate:            rec.EndDate,
		DueDate:            rec.DueDate,
		UserIDs:            rec.UserIDs,
		ErrorsOnly:         rec.ErrorsOnly,
		FetchAllAttributes: rec.FetchAllAttributes,
	}
}

func (f *form) request(kind reports.Kind) reports.Request {
	return reports.Request{
		Kind:     kind,
		Server:   f.Server,
		User:     f.User,
		Password: f.Password,
		Criteria: triggers.Criteria{
			Group:              f.Group,
			Host:               f.Host,
			StartDate:          f.StartDate,
			EndDate:            f.EndDate,
			DueDate:            f.DueDate,
			ErrorsOnly:         f.ErrorsOnly,
			UserIDs:            triggers.ParseUserIDs(f.UserIDs),
			UserIDsText:        f.UserIDs,
			FetchAllAttributes: f.FetchAllAttributes,
		},
		OutputPath: f.Output,
	}
}

// prompter asks for field values on a line-oriented input
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// readSecret reads a line without echo, nil falls back to a plain read
	readSecret func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func (p *prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// ask shows the current value in brackets. An empty answer keeps it, "-"
// clears it.
func (p *prompter) ask(fd field) error {
	if fd.flag != nil {
		def := "y/N"
		if *fd.flag {
			def = "Y/n"
		}
		fmt.Fprintf(p.out, "%s [%s]: ", fd.label, def)
		answer, err := p.line()
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			*fd.flag = true
		case "n", "no":
			*fd.flag = false
		}
		return nil
	}

	shown := *fd.str
	if fd.secret && shown != "" {
		shown = "********"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", fd.label, shown)

	var answer string
	var err error
	if fd.secret && p.readSecret != nil {
		answer, err = p.readSecret()
	} else {
		answer, err = p.line()
	}
	if err != nil {
		return err
	}
	switch answer {
	case "":
	case "-":
		*fd.str = ""
	default:
		*fd.str = answer
	}
	return nil
}

// promptAll walks the given fields in order
func (p *prompter) promptAll(f *form, names ...string) error {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	for _, fd := range f.fields() {
		if len(names) > 0 && !wanted[fd.name] {
			continue
		}
		if err := p.ask(fd); err != nil {
			return fmt.Errorf("reading %s: %w", strings.ToLower(fd.label), err)
		}
	}
	return nil
}
