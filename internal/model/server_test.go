package model_test

import (
	"net/netip"
	"testing"

	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/stretchr/testify/require"
)

func TestServerSetLastWriteWins(t *testing.T) {
	t.Parallel()

	addr := netip.MustParseAddrPort("100.110.120.130:33333")

	first := model.NewServer(addr)
	first.Name = "first"
	first.Map = "de_dust2"

	second := model.NewServer(addr)
	second.Name = "second"

	set := model.NewServerSet(first)
	set.Add(second)

	require.Equal(t, 1, set.Len())

	stored, found := set.Get(addr)
	require.True(t, found)
	require.Equal(t, "second", stored.Name)
	require.Equal(t, "", stored.Map)
	require.True(t, stored.SameAs(first))
}

func TestServerSetUnique(t *testing.T) {
	t.Parallel()

	addrs := []string{"10.0.0.2:27960", "10.0.0.1:27960", "10.0.0.2:27960", "10.0.0.1:27961", "10.0.0.1:27960"}

	var set model.ServerSet
	for _, addr := range addrs {
		set.Add(model.NewServer(netip.MustParseAddrPort(addr)))
	}

	require.Equal(t, 3, set.Len())

	seen := map[netip.AddrPort]bool{}
	for _, server := range set.All() {
		require.False(t, seen[server.Addr], "duplicate address %s", server.Addr)
		seen[server.Addr] = true
	}

	require.Equal(t, []netip.AddrPort{
		netip.MustParseAddrPort("10.0.0.1:27960"),
		netip.MustParseAddrPort("10.0.0.1:27961"),
		netip.MustParseAddrPort("10.0.0.2:27960"),
	}, set.Addrs())
}

func TestServerSetMergeAndClone(t *testing.T) {
	t.Parallel()

	addrA := netip.MustParseAddrPort("10.0.0.1:1")
	addrB := netip.MustParseAddrPort("10.0.0.2:1")

	serverA := model.NewServer(addrA)
	serverA.Rules["sv_os"] = "linux"

	left := model.NewServerSet(serverA)

	updated := model.NewServer(addrA)
	updated.Name = "updated"

	left.Merge(model.NewServerSet(updated, model.NewServer(addrB)))
	require.Equal(t, 2, left.Len())

	got, _ := left.Get(addrA)
	require.Equal(t, "updated", got.Name)

	copied := left.Clone()
	require.True(t, copied.Equal(left))

	copied.Remove(addrB)
	require.False(t, copied.Equal(left))
	require.Equal(t, 2, left.Len())

	original := model.NewServerSet(serverA)
	detached := original.Clone()
	detachedServer, _ := detached.Get(addrA)
	detachedServer.Rules["sv_os"] = "windows"

	kept, _ := original.Get(addrA)
	require.Equal(t, "linux", kept.Rules["sv_os"])
}

func TestServerSetClonePlayers(t *testing.T) {
	t.Parallel()

	addr := netip.MustParseAddrPort("10.0.0.1:27960")
	score, ping, played := int64(10), int64(40), "1m37s"

	server := model.NewServer(addr)
	server.Players = []model.Player{{Name: "PlayerA", Score: &score, Ping: &ping, Time: &played}}

	original := model.NewServerSet(server)
	detached := original.Clone()

	detachedServer, _ := detached.Get(addr)
	*detachedServer.Players[0].Score = 99
	*detachedServer.Players[0].Ping = 999
	*detachedServer.Players[0].Time = "0s"
	detachedServer.Players[0].Name = "renamed"

	kept, _ := original.Get(addr)
	require.Equal(t, "PlayerA", kept.Players[0].Name)
	require.Equal(t, int64(10), *kept.Players[0].Score)
	require.Equal(t, int64(40), *kept.Players[0].Ping)
	require.Equal(t, "1m37s", *kept.Players[0].Time)
}

func TestConfType(t *testing.T) {
	t.Parallel()

	for _, confType := range model.ConfTypes {
		parsed, errParse := model.ParseConfType(confType.String())
		require.NoError(t, errParse)
		require.Equal(t, confType, parsed)
	}

	_, errParse := model.ParseConfType("bogus")
	require.ErrorIs(t, errParse, model.ErrInvalidConfType)
}
