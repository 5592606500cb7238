package domain

// Command is a typed operation parsed from a chat message.
// Every command carries the credential that authorizes it.
type Command interface {
	Credential() string
}

type ClusterSubcommand int

const (
	ClusterAdd ClusterSubcommand = iota
	ClusterList
)

func (s ClusterSubcommand) String() string {
	switch s {
	case ClusterAdd:
		return "add"
	case ClusterList:
		return "list"
	default:
		return "unknown"
	}
}

// RequestOTPCommand asks for a new one-time password.
type RequestOTPCommand struct {
	Token string
}

func (c RequestOTPCommand) Credential() string { return c.Token }

// ClusterCommand administers clusters.
type ClusterCommand struct {
	Sub   ClusterSubcommand
	Token string
}

func (c ClusterCommand) Credential() string { return c.Token }

// JoinCommand adds the sender's group to a cluster.
type JoinCommand struct {
	Cluster string
	OTP     string
}

func (c JoinCommand) Credential() string { return c.OTP }
