// Package domain contains core concepts of the bridge.
// This file defines chat groups and the conversations replies are sent to.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Network identifies the IM backend a group lives on.
type Network string

const (
	NetworkQQ Network = "qq"
)

// Group identifies a chat group on a specific IM backend.
// Groups are plain values: two groups are the same group iff network and id match.
type Group struct {
	Network Network `validate:"required,oneof=qq"`
	ID      string  `validate:"required,excludes=:"`
}

func NewQQGroup(id string) Group {
	return Group{Network: NetworkQQ, ID: id}
}

// Validate rejects groups that cannot be stored as membership keys.
func (g Group) Validate() error {
	return validate.Struct(g)
}

func (g Group) String() string {
	return fmt.Sprintf("%s:%s", g.Network, g.ID)
}

type DestinationKind int

const (
	DestinationGroup DestinationKind = iota
	DestinationFriend
	DestinationGroupTemp
)

// Destination is where an outbound message goes.
// For DestinationGroupTemp both Group and UserID are set.
type Destination struct {
	Kind   DestinationKind
	Group  Group
	UserID string
}

func ToGroup(g Group) Destination {
	return Destination{Kind: DestinationGroup, Group: g}
}

func ToFriend(userID string) Destination {
	return Destination{Kind: DestinationFriend, UserID: userID}
}

func ToGroupTemp(g Group, userID string) Destination {
	return Destination{Kind: DestinationGroupTemp, Group: g, UserID: userID}
}

// MemberInfo is what the IM backend knows about a group member.
// CardName is the group-specific nickname and is often empty.
type MemberInfo struct {
	Nickname string
	CardName string
}

// DisplayName prefers "card (nickname)" and falls back to the plain nickname.
func (m MemberInfo) DisplayName() string {
	if m.CardName == "" {
		return m.Nickname
	}
	return fmt.Sprintf("%s (%s)", m.CardName, m.Nickname)
}
