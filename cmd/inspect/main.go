package main

import (
	"flag"
	"fmt"
	"im-bridge/domain"
	"im-bridge/repositories"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data/bridge"`
	// INSPECT_COLOURS highlights empty clusters
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	dbPath := flag.String("db", config.BadgerFilepath, "Path to badger DB")
	group := flag.String("group", "", "Only show clusters containing this group id")
	flag.Parse()

	// BypassLockGuard allows opening while the bridge holds the lock
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repo := repositories.NewClusterRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn), nil)
	clusters, err := repo.All()
	if err != nil {
		log.Fatal(err)
	}
	if *group != "" {
		g := domain.NewQQGroup(*group)
		clusters = lo.Filter(clusters, func(c domain.Cluster, _ int) bool {
			return c.Has(g)
		})
	}
	render(os.Stdout, clusters, config.Colours)
}

func render(w io.Writer, clusters []domain.Cluster, colours bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Cluster", "Created", "Members", "Groups"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, c := range clusters {
		name := c.Name
		if colours && len(c.Groups) == 0 {
			name = color.FgYellow.Render(name)
		}
		groups := lo.Map(c.Groups, func(g domain.Group, _ int) string { return g.String() })
		table.Append([]string{
			name,
			c.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", len(c.Groups)),
			strings.Join(groups, " "),
		})
	}
	table.Render()
}
