package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/leighmacdonald/rgs/pkg/util"
	"github.com/mitchellh/go-ps"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Setting keys read from the backend config store.
const (
	KeyQStatPath       = "qstat_path"
	KeyMasterType      = "qstat_master_type"
	KeyServerType      = "qstat_server_type"
	KeyMasterServerURI = "master_server_uri"
	KeyGameType        = "qstat_game_type"
)

const (
	// qstat filters master replies on server rules, the game type is published by
	// servers under the "gametype" rule rather than under its setting key.
	ruleGameType   = "gametype"
	maxStderrBytes = 512
	// Process names reported by the OS are cut to this length on linux.
	maxCommLen = 15
	// Upper bound on waiting for output pipes after qstat itself has exited or been killed.
	pipeWaitDelay = 2 * time.Second
)

type qstatPlayer struct {
	Name  string  `json:"name"`
	Score *int64  `json:"score"`
	Ping  *int64  `json:"ping"`
	Time  *string `json:"time"`
}

type qstatServer struct {
	Protocol      *string           `json:"protocol"`
	Address       *string           `json:"address"`
	Status        *string           `json:"status"`
	Hostname      *string           `json:"hostname"`
	Name          *string           `json:"name"`
	GameType      *string           `json:"gametype"`
	Map           *string           `json:"map"`
	NumPlayers    *int64            `json:"numplayers"`
	MaxPlayers    *int64            `json:"maxplayers"`
	NumSpectators *int64            `json:"numspectators"`
	MaxSpectators *int64            `json:"maxspectators"`
	Ping          *int64            `json:"ping"`
	Rules         map[string]string `json:"rules"`
	Players       []qstatPlayer     `json:"players"`
}

var errMissingAddress = errors.New("missing address")

func (s qstatServer) toServer(serverType string) (model.Server, error) {
	if s.Address == nil || *s.Address == "" {
		return model.Server{}, errMissingAddress
	}

	addr, errAddr := netip.ParseAddrPort(*s.Address)
	if errAddr != nil {
		return model.Server{}, errors.Wrapf(errAddr, "Invalid address: %s", *s.Address)
	}

	server := model.NewServer(addr)
	server.Protocol = orString(s.Protocol, serverType)
	server.Status = orString(s.Status, "")
	server.Hostname = orString(s.Hostname, "")
	server.Name = orString(s.Name, "")
	server.GameType = orString(s.GameType, "")
	server.Map = orString(s.Map, "")
	server.NumPlayers = orInt(s.NumPlayers)
	server.MaxPlayers = orInt(s.MaxPlayers)
	server.NumSpectators = orInt(s.NumSpectators)
	server.MaxSpectators = orInt(s.MaxSpectators)
	server.Ping = orInt(s.Ping)

	for key, value := range s.Rules {
		server.Rules[key] = value
	}

	for _, player := range s.Players {
		server.Players = append(server.Players, model.Player{
			Name:  player.Name,
			Score: player.Score,
			Ping:  player.Ping,
			Time:  player.Time,
		})
	}

	return server, nil
}

func orString(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}

	return *value
}

func orInt(value *int64) int64 {
	if value == nil {
		return 0
	}

	return *value
}

type querySettings struct {
	qstatPath       string
	masterType      string
	serverType      string
	masterServerURI []string
	gameType        string
}

func readQuerySettings(settings *config.Store) (querySettings, error) {
	var (
		qs     querySettings
		errGet error
	)

	if qs.qstatPath, errGet = settings.String(KeyQStatPath); errGet != nil {
		return qs, errGet
	}

	if qs.masterType, errGet = settings.String(KeyMasterType); errGet != nil {
		return qs, errGet
	}

	if qs.serverType, errGet = settings.String(KeyServerType); errGet != nil {
		return qs, errGet
	}

	if qs.masterServerURI, errGet = settings.Strings(KeyMasterServerURI); errGet != nil {
		return qs, errGet
	}

	if len(qs.masterServerURI) == 0 {
		return qs, errors.Wrapf(model.ErrBackend, "%s: no master servers configured", KeyMasterServerURI)
	}

	if settings.Has(KeyGameType) {
		if qs.gameType, errGet = settings.String(KeyGameType); errGet != nil {
			return qs, errGet
		}
	}

	expanded, errExpand := util.ExpandPath(qs.qstatPath)
	if errExpand != nil {
		return qs, errors.Wrap(model.ErrBackend, errExpand.Error())
	}

	qs.qstatPath = expanded

	return qs, nil
}

func (qs querySettings) rules() map[string]string {
	rules := map[string]string{}
	if qs.gameType != "" {
		rules[ruleGameType] = qs.gameType
	}

	return rules
}

// makeRuleString renders the rule filter as ",key=value" pairs ordered by key.
func makeRuleString(rules map[string]string) string {
	keys := make([]string, 0, len(rules))
	for key := range rules {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(",")
		builder.WriteString(key)
		builder.WriteString("=")
		builder.WriteString(rules[key])
	}

	return builder.String()
}

func makeCmdParams(masterType string, rules map[string]string, masterServerURI []string) []string {
	return []string{
		"-json",
		"-utf8",
		"-maxsim", "9999",
		"-R",
		"-P",
		"-" + strings.ToLower(masterType) + makeRuleString(rules),
		strings.Join(masterServerURI, " "),
	}
}

// makeCmdLine builds the single argument string passed to qstat.
func makeCmdLine(masterType string, rules map[string]string, masterServerURI []string) string {
	return strings.Join(makeCmdParams(masterType, rules, masterServerURI), " ")
}

// parse decodes qstat JSON output. Entries without a usable address are skipped.
func parse(logger *zap.Logger, raw []byte, serverType string) (model.ServerSet, error) {
	if !utf8.Valid(raw) {
		return model.ServerSet{}, errors.Wrap(model.ErrDataParse, "qstat output is not valid utf-8")
	}

	var response []qstatServer
	if errJSON := json.Unmarshal(raw, &response); errJSON != nil {
		return model.ServerSet{}, errors.Wrapf(model.ErrDataParse, "Failed to decode qstat output: %v", errJSON)
	}

	// null decodes into a nil slice without error.
	if response == nil {
		return model.ServerSet{}, errors.Wrap(model.ErrDataParse, "qstat output is not a JSON array")
	}

	servers := model.NewServerSet()

	for idx, entry := range response {
		server, errServer := entry.toServer(serverType)
		if errServer != nil {
			logger.Debug("Skipping qstat entry", zap.Int("index", idx), zap.Error(errServer))

			continue
		}

		servers.Add(server)
	}

	return servers, nil
}

// trackedProcess is a qstat process started by a query along with the executable
// name it was started as.
type trackedProcess struct {
	proc       *os.Process
	executable string
}

// QStat queries master servers and their game servers with the external qstat tool.
type QStat struct {
	log       *zap.Logger
	runningMu *sync.Mutex
	running   map[int]trackedProcess
}

func NewQStat(logger *zap.Logger) *QStat {
	return &QStat{
		log:       logger.Named("qstat"),
		runningMu: &sync.Mutex{},
		running:   map[int]trackedProcess{},
	}
}

func (q *QStat) Query(ctx context.Context, settings *config.Store) (model.ServerSet, error) {
	qs, errSettings := readQuerySettings(settings)
	if errSettings != nil {
		return model.ServerSet{}, errSettings
	}

	var (
		start   = time.Now()
		cmdLine = makeCmdLine(qs.masterType, qs.rules(), qs.masterServerURI)
		stdout  bytes.Buffer
		stderr  bytes.Buffer
	)

	cmd := exec.CommandContext(ctx, qs.qstatPath, cmdLine) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeWaitDelay

	if errStart := cmd.Start(); errStart != nil {
		return model.ServerSet{}, errors.Wrapf(model.ErrIO, "Failed to start qstat: %v", errStart)
	}

	q.track(cmd.Process, qs.qstatPath)
	errWait := cmd.Wait()
	q.untrack(cmd.Process.Pid)

	if errWait != nil {
		var exitErr *exec.ExitError
		if !errors.As(errWait, &exitErr) {
			return model.ServerSet{}, errors.Wrapf(model.ErrIO, "Failed to wait for qstat: %v", errWait)
		}

		desc := describeExit(exitErr.ProcessState)
		if msg := stderrTail(stderr.Bytes()); msg != "" {
			desc += ": " + msg
		}

		if errCtx := ctx.Err(); errCtx != nil {
			desc += " (" + errCtx.Error() + ")"
		}

		return model.ServerSet{}, errors.Wrap(model.ErrIO, desc)
	}

	servers, errParse := parse(q.log, stdout.Bytes(), qs.serverType)
	if errParse != nil {
		return model.ServerSet{}, errParse
	}

	q.log.Debug("Query complete",
		zap.String("master_type", qs.masterType),
		zap.Int("servers", servers.Len()),
		zap.Duration("duration", time.Since(start)))

	return servers, nil
}

// Running returns the number of qstat processes currently in flight.
func (q *QStat) Running() int {
	q.runningMu.Lock()
	defer q.runningMu.Unlock()

	return len(q.running)
}

// Kill terminates every qstat process this backend started that is still alive. The
// queries they belong to fail with ErrIO. A pid that is gone, or that no longer runs
// the executable it was started as, is left alone.
func (q *QStat) Kill() error {
	q.runningMu.Lock()
	procs := make(map[int]trackedProcess, len(q.running))

	for pid, tracked := range q.running {
		procs[pid] = tracked
	}
	q.runningMu.Unlock()

	var err error

	for pid, tracked := range procs {
		found, errFind := ps.FindProcess(pid)
		if errFind != nil {
			err = multierr.Append(err, errors.Wrapf(errFind, "Failed to look up pid %d", pid))

			continue
		}

		if found == nil {
			continue
		}

		if !sameExecutable(found.Executable(), tracked.executable) {
			q.log.Warn("Not killing pid, executable changed",
				zap.Int("pid", pid),
				zap.String("expected", tracked.executable),
				zap.String("found", found.Executable()))

			continue
		}

		if errKill := tracked.proc.Kill(); errKill != nil && !errors.Is(errKill, os.ErrProcessDone) {
			err = multierr.Append(err, errors.Wrapf(errKill, "Failed to kill pid %d", pid))

			continue
		}

		q.log.Info("Killed qstat process", zap.Int("pid", pid))
	}

	return err
}

func (q *QStat) track(proc *os.Process, qstatPath string) {
	q.runningMu.Lock()
	defer q.runningMu.Unlock()

	q.running[proc.Pid] = trackedProcess{proc: proc, executable: filepath.Base(qstatPath)}
}

// sameExecutable compares a process name as reported by the OS against the base name
// of the binary that was started, allowing for the truncated names linux reports.
func sameExecutable(found string, expected string) bool {
	if found == expected {
		return true
	}

	if len(expected) > maxCommLen && found == expected[:maxCommLen] {
		return true
	}

	return false
}

func (q *QStat) untrack(pid int) {
	q.runningMu.Lock()
	defer q.runningMu.Unlock()

	delete(q.running, pid)
}

func stderrTail(stderr []byte) string {
	msg := strings.TrimSpace(string(stderr))
	if len(msg) > maxStderrBytes {
		msg = msg[len(msg)-maxStderrBytes:]
	}

	return msg
}
