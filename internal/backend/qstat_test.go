package backend

import (
	"net/netip"
	"testing"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixture = `
[
    {
        "protocol": "a2s",
        "address": "100.110.120.130:33333",
        "status": "online",
        "hostname": "100.110.120.130:33333",
        "name": "MyPreciousServer",
        "gametype": "cstrike",
        "map": "de_dust2",
        "numplayers": 14,
        "maxplayers": 33,
        "numspectators": 0,
        "maxspectators": 0,
        "ping": 10,
        "retries": 0,
        "rules": {
            "protocol": "11",
            "gamedir": "cstrike",
            "gamename": "Counter-Strike: Source",
            "bots": "0",
            "dedicated": "1",
            "sv_os": "linux",
            "secure": "1",
            "version": "3398447",
            "game_port": "33333",
            "game_tags": "increased_maxplayers,!weapon,alltalk,bhop,bunnyhopping,de,mg,minigames,no-steam,shop,startmoney"
        },
        "players": [
            {
                "name": "PlayerA",
                "score": 0,
                "time": "9s"
            },
            {
                "name": "PlayerB",
                "score": 10,
                "time": "1m37s"
            }
        ]
    }
]
`

func TestMakeCmdParams(t *testing.T) {
	t.Parallel()

	rules := map[string]string{"rule1": "value1", "rule2": "value2"}
	masterServerURI := []string{"serverA", "serverB"}

	expected := []string{
		"-json",
		"-utf8",
		"-maxsim",
		"9999",
		"-R",
		"-P",
		"-q3s" + makeRuleString(rules),
		"serverA serverB",
	}

	require.Equal(t, expected, makeCmdParams("q3s", rules, masterServerURI))
	require.Equal(t, ",rule1=value1,rule2=value2", makeRuleString(rules))
	require.Equal(t, "-json -utf8 -maxsim 9999 -R -P -q3s,rule1=value1,rule2=value2 serverA serverB",
		makeCmdLine("Q3S", rules, masterServerURI))
	require.Equal(t, "", makeRuleString(nil))
}

func TestParse(t *testing.T) {
	t.Parallel()

	servers, errParse := parse(zap.NewNop(), []byte(fixture), "a2s")
	require.NoError(t, errParse)

	addr := netip.MustParseAddrPort("100.110.120.130:33333")
	require.True(t, servers.Equal(model.NewServerSet(model.NewServer(addr))))

	server, found := servers.Get(addr)
	require.True(t, found)
	require.Equal(t, "MyPreciousServer", server.Name)
	require.Equal(t, "de_dust2", server.Map)
	require.Equal(t, int64(14), server.NumPlayers)
	require.Equal(t, int64(33), server.MaxPlayers)
	require.Equal(t, int64(10), server.Ping)
	require.Equal(t, "linux", server.Rules["sv_os"])
	require.Len(t, server.Players, 2)
	require.Equal(t, "PlayerB", server.Players[1].Name)
	require.Equal(t, int64(10), *server.Players[1].Score)
	require.Nil(t, server.Players[1].Ping)
	require.Equal(t, "1m37s", *server.Players[1].Time)
}

func TestParseSkipsBadAddresses(t *testing.T) {
	t.Parallel()

	raw := `[
		{"address": "10.0.0.1:27960", "name": "first"},
		{"name": "no address"},
		{"address": "master.example.com:27950"},
		{"address": "10.0.0.1:27960", "name": "second"}
	]`

	servers, errParse := parse(zap.NewNop(), []byte(raw), "q3s")
	require.NoError(t, errParse)
	require.Equal(t, 1, servers.Len())

	server, _ := servers.Get(netip.MustParseAddrPort("10.0.0.1:27960"))
	require.Equal(t, "second", server.Name)
	require.Equal(t, "q3s", server.Protocol)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string][]byte{
		"invalid_json": []byte(`[{"address": `),
		"not_array":    []byte(`{"address": "10.0.0.1:1"}`),
		"bad_type":     []byte(`[{"address": "10.0.0.1:1", "numplayers": "many"}]`),
		"bad_rules":    []byte(`[{"address": "10.0.0.1:1", "rules": {"bots": 0}}]`),
		"invalid_utf8": {'[', '"', 0xff, '"', ']'},
		"null":         []byte(`null`),
		"null_padded":  []byte(" null\n"),
	} {
		_, errParse := parse(zap.NewNop(), raw, "q3s")
		require.ErrorIs(t, errParse, model.ErrDataParse, name)
	}

	empty, errEmpty := parse(zap.NewNop(), []byte(`[]`), "q3s")
	require.NoError(t, errEmpty)
	require.Equal(t, 0, empty.Len())
}

func TestSameExecutable(t *testing.T) {
	t.Parallel()

	require.True(t, sameExecutable("qstat", "qstat"))
	require.True(t, sameExecutable("qstat-2.17-stat", "qstat-2.17-static"))
	require.False(t, sameExecutable("sleep", "qstat"))
	require.False(t, sameExecutable("qsta", "qstat"))
	require.False(t, sameExecutable("qstat-2.17-xxxx", "qstat-2.17-static"))
}

func TestReadQuerySettings(t *testing.T) {
	t.Parallel()

	newStore := func() *config.Store {
		store := config.NewStore()
		store.Set(KeyQStatPath, config.StringValue("/usr/bin/qstat"))
		store.Set(KeyMasterType, config.StringValue("q3m"))
		store.Set(KeyServerType, config.StringValue("q3s"))
		store.Set(KeyMasterServerURI, config.StringsValue("master.ioquake3.org"))

		return store
	}

	settings, errSettings := readQuerySettings(newStore())
	require.NoError(t, errSettings)
	require.Empty(t, settings.rules())

	withGameType := newStore()
	withGameType.Set(KeyGameType, config.StringValue("ctf"))
	settings, errSettings = readQuerySettings(withGameType)
	require.NoError(t, errSettings)
	require.Equal(t, map[string]string{ruleGameType: "ctf"}, settings.rules())

	badGameType := newStore()
	badGameType.Set(KeyGameType, config.IntValue(4))
	_, errSettings = readQuerySettings(badGameType)
	require.ErrorIs(t, errSettings, model.ErrSettingTypeMismatch)

	noMasters := newStore()
	noMasters.Set(KeyMasterServerURI, config.StringsValue())
	_, errSettings = readQuerySettings(noMasters)
	require.ErrorIs(t, errSettings, model.ErrBackend)

	for _, key := range []string{KeyQStatPath, KeyMasterType, KeyServerType, KeyMasterServerURI} {
		missing := newStore()
		missing.Delete(key)

		_, errMissing := readQuerySettings(missing)
		require.ErrorIs(t, errMissing, model.ErrInvalidSettingKey, key)
	}
}
