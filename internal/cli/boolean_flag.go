package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName              = "bool"
	booleanFlagTrueLiteral           = "true"
	booleanFlagAcceptedValuesListing = "true, false, yes, no, on, off"
	invalidBooleanFlagValueMessage   = "invalid boolean value %q for --%s; accepted values: %s"
)

// booleanFlagLiterals are the words accepted as a separate value after a boolean flag.
// Digits are left out so "tre --git 2" keeps 2 as the depth shorthand.
var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

type booleanFlagValue struct {
	target  *bool
	flagKey string
}

func (value *booleanFlagValue) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	if parsed, known := booleanFlagLiterals[normalized]; known {
		*value.target = parsed
		return nil
	}
	parsed, parseError := strconv.ParseBool(normalized)
	if parseError != nil {
		return fmt.Errorf(invalidBooleanFlagValueMessage, input, value.flagKey, booleanFlagAcceptedValuesListing)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag adds a flag that is true when given bare and also accepts yes/no style values.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, usage string) {
	*target = false
	flagSet.Var(&booleanFlagValue{target: target, flagKey: name}, name, usage)
	lookup := flagSet.Lookup(name)
	lookup.DefValue = strconv.FormatBool(false)
	lookup.NoOptDefVal = booleanFlagTrueLiteral
}

// normalizeBooleanFlagArguments joins "--flag no" into "--flag=no" for boolean flags of command,
// since pflag never consumes a separate value for flags with NoOptDefVal.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	booleanFlags := make(map[string]struct{})
	command.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Value.Type() == booleanFlagTypeName {
			booleanFlags[flag.Name] = struct{}{}
		}
	})

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		currentArgument := arguments[index]
		if currentArgument == "--" {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		flagName, isLongFlag := strings.CutPrefix(currentArgument, "--")
		if isLongFlag && !strings.Contains(flagName, "=") && index+1 < len(arguments) {
			if _, isBoolean := booleanFlags[flagName]; isBoolean {
				literal := strings.ToLower(strings.TrimSpace(arguments[index+1]))
				if _, valid := booleanFlagLiterals[literal]; valid {
					normalized = append(normalized, currentArgument+"="+arguments[index+1])
					index++
					continue
				}
			}
		}
		normalized = append(normalized, currentArgument)
	}
	return normalized
}
