package cli

import (
	"errors"
	"flag"
)

// CommonFlags are shared by every command
type CommonFlags struct {
	ConfigPath string
	Verbose    bool
}

func (f *CommonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.BoolVar(&f.Verbose, "verbose", false, "Verbose output")
}

// UserFlags select the user a batch command runs for
type UserFlags struct {
	CommonFlags
	UserID string
	JSON   bool
}

func (f *UserFlags) register(fs *flag.FlagSet) {
	f.CommonFlags.register(fs)
	fs.StringVar(&f.UserID, "user", "", "User id to operate on (required)")
	fs.BoolVar(&f.JSON, "json", false, "Print the result as JSON")
}

func (f *UserFlags) validate() error {
	if f.UserID == "" {
		return errors.New("-user is required")
	}
	return nil
}

// DetectFlags configure the detect command
type DetectFlags struct {
	UserFlags
	MinOccurrences int
	LookbackMonths int
	Confirm        bool
}

// ParseDetectFlags parses detect flags from args
func ParseDetectFlags(args []string) (*DetectFlags, error) {
	flags := &DetectFlags{}
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	flags.UserFlags.register(fs)
	fs.IntVar(&flags.MinOccurrences, "min", 0, "Minimum occurrences per candidate (0 = configured default)")
	fs.IntVar(&flags.LookbackMonths, "months", 0, "Months of history to scan (0 = configured default)")
	fs.BoolVar(&flags.Confirm, "confirm", false, "Create services for every candidate found")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, flags.validate()
}

// ParseRecalculateFlags parses recalculate flags from args
func ParseRecalculateFlags(args []string) (*UserFlags, error) {
	flags := &UserFlags{}
	fs := flag.NewFlagSet("recalculate", flag.ContinueOnError)
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, flags.validate()
}
