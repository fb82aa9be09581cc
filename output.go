package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/pkg/errors"
)

type gameView struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Backend string       `json:"backend"`
	Status  string       `json:"status"`
	Servers int          `json:"servers"`
	List    []serverView `json:"list,omitempty"`
}

type serverView struct {
	Address    string            `json:"address"`
	Protocol   string            `json:"protocol"`
	Name       string            `json:"name"`
	Map        string            `json:"map"`
	GameType   string            `json:"gametype,omitempty"`
	NumPlayers int64             `json:"numplayers"`
	MaxPlayers int64             `json:"maxplayers"`
	Ping       int64             `json:"ping"`
	Rules      map[string]string `json:"rules,omitempty"`
	Players    []model.Player    `json:"players,omitempty"`
}

func newServerView(server model.Server) serverView {
	name := server.Hostname
	if name == "" {
		name = server.Name
	}

	return serverView{
		Address:    server.Addr.String(),
		Protocol:   server.Protocol,
		Name:       name,
		Map:        server.Map,
		GameType:   server.GameType,
		NumPlayers: server.NumPlayers,
		MaxPlayers: server.MaxPlayers,
		Ping:       server.Ping,
		Rules:      server.Rules,
		Players:    server.Players,
	}
}

func (app *application) gameView(gameID string, withServers bool) (gameView, error) {
	status, errStatus := app.registry.Status(gameID)
	if errStatus != nil {
		return gameView{}, errStatus
	}

	servers, errServers := app.registry.Servers(gameID)
	if errServers != nil {
		return gameView{}, errServers
	}

	entry := app.games.Games[gameID]
	view := gameView{
		ID:      gameID,
		Name:    entry.Name,
		Backend: entry.BackendName(),
		Status:  status.String(),
		Servers: servers.Len(),
	}

	if withServers {
		for _, server := range servers.All() {
			view.List = append(view.List, newServerView(server))
		}
	}

	return view, nil
}

func (app *application) gameViews(gameIDs []string, withServers bool) ([]gameView, error) {
	views := make([]gameView, 0, len(gameIDs))

	for _, gameID := range gameIDs {
		view, errView := app.gameView(gameID, withServers)
		if errView != nil {
			return nil, errView
		}

		views = append(views, view)
	}

	return views, nil
}

func writeJSON(output io.Writer, value any) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")

	return errors.Wrap(encoder.Encode(value), "Failed to encode output")
}

func printGames(output io.Writer, app *application, jsonOutput bool) error {
	views, errViews := app.gameViews(app.registry.ListGames(), false)
	if errViews != nil {
		return errViews
	}

	if jsonOutput {
		return writeJSON(output, views)
	}

	table := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(table, "ID\tNAME\tBACKEND")

	for _, view := range views {
		_, _ = fmt.Fprintf(table, "%s\t%s\t%s\n", view.ID, view.Name, view.Backend)
	}

	return errors.Wrap(table.Flush(), "Failed to write output")
}

func printServers(output io.Writer, app *application, gameIDs []string, jsonOutput bool) error {
	views, errViews := app.gameViews(gameIDs, true)
	if errViews != nil {
		return errViews
	}

	if jsonOutput {
		return writeJSON(output, views)
	}

	for _, view := range views {
		_, _ = fmt.Fprintf(output, "%s: %s, %d servers\n", view.ID, view.Status, view.Servers)

		if len(view.List) == 0 {
			continue
		}

		table := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(table, "ADDRESS\tNAME\tMAP\tPLAYERS\tPING")

		for _, server := range view.List {
			_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%d/%d\t%d\n",
				server.Address, server.Name, server.Map, server.NumPlayers, server.MaxPlayers, server.Ping)
		}

		if errFlush := table.Flush(); errFlush != nil {
			return errors.Wrap(errFlush, "Failed to write output")
		}
	}

	return nil
}

func printSummary(output io.Writer, app *application, gameIDs []string, round int, jsonOutput bool) error {
	views, errViews := app.gameViews(gameIDs, false)
	if errViews != nil {
		return errViews
	}

	if jsonOutput {
		return writeJSON(output, map[string]any{"round": round, "games": views})
	}

	for _, view := range views {
		_, _ = fmt.Fprintf(output, "[%d] %s: %s, %d servers\n", round, view.ID, view.Status, view.Servers)
	}

	return nil
}
