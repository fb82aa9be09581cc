package model

import (
	"net/netip"
	"slices"
	"sort"
)

// Player is a single player entry reported by a server.
type Player struct {
	Name  string  `json:"name"`
	Score *int64  `json:"score,omitempty"`
	Ping  *int64  `json:"ping,omitempty"`
	Time  *string `json:"time,omitempty"`
}

func (p Player) clone() Player {
	out := p

	if p.Score != nil {
		score := *p.Score
		out.Score = &score
	}

	if p.Ping != nil {
		ping := *p.Ping
		out.Ping = &ping
	}

	if p.Time != nil {
		played := *p.Time
		out.Time = &played
	}

	return out
}

// Server is a single discovered game server. Addr is the only identity field, two
// servers with the same Addr are the same server regardless of their other attributes.
type Server struct {
	Addr          netip.AddrPort    `json:"address"`
	Protocol      string            `json:"protocol"`
	Status        string            `json:"status"`
	Hostname      string            `json:"hostname"`
	Name          string            `json:"name"`
	GameType      string            `json:"gametype"`
	Map           string            `json:"map"`
	NumPlayers    int64             `json:"numplayers"`
	MaxPlayers    int64             `json:"maxplayers"`
	NumSpectators int64             `json:"numspectators"`
	MaxSpectators int64             `json:"maxspectators"`
	Ping          int64             `json:"ping"`
	Rules         map[string]string `json:"rules"`
	Players       []Player          `json:"players"`
}

func NewServer(addr netip.AddrPort) Server {
	return Server{Addr: addr, Rules: map[string]string{}}
}

// SameAs reports whether both records describe the same server.
func (s Server) SameAs(other Server) bool {
	return s.Addr == other.Addr
}

// RuleKeys returns the rule names sorted for display.
func (s Server) RuleKeys() []string {
	keys := make([]string, 0, len(s.Rules))
	for key := range s.Rules {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (s Server) clone() Server {
	out := s

	if s.Rules != nil {
		out.Rules = make(map[string]string, len(s.Rules))
		for k, v := range s.Rules {
			out.Rules[k] = v
		}
	}

	if s.Players != nil {
		out.Players = make([]Player, len(s.Players))
		for i, player := range s.Players {
			out.Players[i] = player.clone()
		}
	}

	return out
}

// ServerSet is a collection of servers de-duplicated by address. The zero value is
// an empty set ready to use.
type ServerSet struct {
	servers map[netip.AddrPort]Server
}

func NewServerSet(servers ...Server) ServerSet {
	set := ServerSet{servers: make(map[netip.AddrPort]Server, len(servers))}
	for _, server := range servers {
		set.Add(server)
	}

	return set
}

// Add inserts the server, replacing any existing record with the same address.
func (set *ServerSet) Add(server Server) {
	if set.servers == nil {
		set.servers = map[netip.AddrPort]Server{}
	}

	set.servers[server.Addr] = server
}

func (set *ServerSet) Remove(addr netip.AddrPort) {
	delete(set.servers, addr)
}

func (set ServerSet) Get(addr netip.AddrPort) (Server, bool) {
	server, found := set.servers[addr]

	return server, found
}

func (set ServerSet) Contains(addr netip.AddrPort) bool {
	_, found := set.servers[addr]

	return found
}

func (set ServerSet) Len() int {
	return len(set.servers)
}

// Merge adds every server from other, records from other win on address conflicts.
func (set *ServerSet) Merge(other ServerSet) {
	for _, server := range other.servers {
		set.Add(server)
	}
}

// All returns the servers ordered by address.
func (set ServerSet) All() []Server {
	out := make([]Server, 0, len(set.servers))
	for _, server := range set.servers {
		out = append(out, server)
	}

	slices.SortFunc(out, func(a, b Server) int {
		return a.Addr.Compare(b.Addr)
	})

	return out
}

// Addrs returns the addresses in the set in sorted order.
func (set ServerSet) Addrs() []netip.AddrPort {
	out := make([]netip.AddrPort, 0, len(set.servers))
	for addr := range set.servers {
		out = append(out, addr)
	}

	slices.SortFunc(out, func(a, b netip.AddrPort) int {
		return a.Compare(b)
	})

	return out
}

// Equal compares the sets by server identity only.
func (set ServerSet) Equal(other ServerSet) bool {
	if set.Len() != other.Len() {
		return false
	}

	for addr := range set.servers {
		if !other.Contains(addr) {
			return false
		}
	}

	return true
}

// Clone returns a deep copy that shares no memory with the original.
func (set ServerSet) Clone() ServerSet {
	out := ServerSet{servers: make(map[netip.AddrPort]Server, len(set.servers))}
	for addr, server := range set.servers {
		out.servers[addr] = server.clone()
	}

	return out
}
