// Package parser turns chat text into typed commands.
//
// Parsing never fails loudly: anything that is not a well-formed command
// yields no match, so ordinary chat text keeps flowing to the forwarder.
package parser

import (
	"im-bridge/domain"
	"strings"

	"github.com/mattn/go-shellwords"
)

const DefaultPrefix = "/"

type Parser struct {
	prefix string
}

func NewParser(prefix string) Parser {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Parser{prefix: prefix}
}

// Parse returns the command in text, or false when text is not a command.
func (p Parser) Parse(text string) (domain.Command, bool) {
	rest, ok := strings.CutPrefix(text, p.prefix)
	if !ok {
		return nil, false
	}
	// shellwords stops at an unquoted ; | & < or > and reports where in Position.
	// Anything left unread means the text is not a single command.
	sp := shellwords.NewParser()
	tokens, err := sp.Parse(rest)
	if err != nil || sp.Position != -1 || len(tokens) == 0 {
		return nil, false
	}
	name, args := tokens[0], tokens[1:]
	switch name {
	case "request-otp":
		return parseRequestOTP(args)
	case "cluster":
		return parseCluster(args)
	case "join":
		return parseJoin(args)
	default:
		return nil, false
	}
}

// parseRequestOTP: request-otp --token T
func parseRequestOTP(args []string) (domain.Command, bool) {
	a, ok := split(args, flagSpec{long: "token", short: "t"})
	if !ok || len(a.positionals) != 0 {
		return nil, false
	}
	token, ok := a.flags["token"]
	if !ok {
		return nil, false
	}
	return domain.RequestOTPCommand{Token: token}, true
}

// parseCluster: cluster <add|list> --token T
func parseCluster(args []string) (domain.Command, bool) {
	a, ok := split(args, flagSpec{long: "token", short: "t"})
	if !ok || len(a.positionals) != 1 {
		return nil, false
	}
	token, ok := a.flags["token"]
	if !ok {
		return nil, false
	}
	switch a.positionals[0] {
	case "add":
		return domain.ClusterCommand{Sub: domain.ClusterAdd, Token: token}, true
	case "list":
		return domain.ClusterCommand{Sub: domain.ClusterList, Token: token}, true
	default:
		return nil, false
	}
}

// parseJoin: join <cluster> --otp O
func parseJoin(args []string) (domain.Command, bool) {
	a, ok := split(args, flagSpec{long: "otp", short: "o"})
	if !ok || len(a.positionals) != 1 {
		return nil, false
	}
	otp, ok := a.flags["otp"]
	if !ok {
		return nil, false
	}
	return domain.JoinCommand{Cluster: a.positionals[0], OTP: otp}, true
}

type flagSpec struct {
	long  string
	short string
}

type arguments struct {
	positionals []string
	flags       map[string]string
}

// split separates positionals from the allowed value flags.
// Accepted spellings: --long v, --long=v, -s v, -s=v, -sv. A flag given twice,
// an unknown flag, a flag without value and "--" are all rejected.
func split(args []string, specs ...flagSpec) (arguments, bool) {
	res := arguments{flags: make(map[string]string)}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			res.positionals = append(res.positionals, arg)
			continue
		}
		long, value, hasValue, ok := flag(arg, specs)
		if !ok {
			return arguments{}, false
		}
		if _, dup := res.flags[long]; dup {
			return arguments{}, false
		}
		if !hasValue {
			if i+1 >= len(args) {
				return arguments{}, false
			}
			i++
			value = args[i]
		}
		res.flags[long] = value
	}
	return res, true
}

// flag resolves one dash-prefixed argument to the long name of its spec.
// Short flags are a single character, so whatever follows it is an attached value.
func flag(arg string, specs []flagSpec) (long, value string, hasValue, ok bool) {
	if body, isLong := strings.CutPrefix(arg, "--"); isLong {
		var name string
		name, value, hasValue = strings.Cut(body, "=")
		long, ok = lookup(name, true, specs)
		return long, value, hasValue, ok
	}
	body := strings.TrimPrefix(arg, "-")
	name, attached := body[:1], body[1:]
	long, ok = lookup(name, false, specs)
	if !ok {
		return "", "", false, false
	}
	if attached == "" {
		return long, "", false, true
	}
	return long, strings.TrimPrefix(attached, "="), true, true
}

func lookup(name string, isLong bool, specs []flagSpec) (string, bool) {
	for _, s := range specs {
		if isLong && name == s.long {
			return s.long, true
		}
		if !isLong && name == s.short {
			return s.long, true
		}
	}
	return "", false
}
