// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/stash"
	"github.com/poiesic/stash/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "stash",
		Usage: "Typed query layer over a transactional key-value store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Root directory holding the databases",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:     "schema",
				Aliases:  []string{"s"},
				Usage:    "Path to the JSON schema descriptor",
				Required: true,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "storages",
				Usage:  "List the storages of the database",
				Action: storagesCommand,
			},
			{
				Name:      "create-storage",
				Usage:     "Create a storage outside the upgrade phase",
				ArgsUsage: "NAME",
				Action:    createStorageCommand,
			},
			{
				Name:      "delete-storage",
				Usage:     "Delete a storage with everything in it",
				ArgsUsage: "NAME",
				Action:    deleteStorageCommand,
			},
			{
				Name:   "drop",
				Usage:  "Delete the whole database",
				Action: dropCommand,
			},
			{
				Name:      "insert",
				Usage:     "Insert one JSON record",
				ArgsUsage: "STORAGE JSON",
				Action:    insertCommand,
			},
			{
				Name:      "select",
				Usage:     "Select records from a storage",
				ArgsUsage: "STORAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "Index name, or \"id\" for the primary-key space",
					},
					&cli.StringFlag{
						Name:  "value",
						Usage: "Exact-match value (number or string)",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Cap the number of results",
					},
					&cli.BoolFlag{
						Name:  "desc",
						Usage: "Walk the key space in reverse",
					},
				},
				Action: selectCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete by primary key or exact index value",
				ArgsUsage: "STORAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "Index name, or \"id\" for the primary-key space",
					},
					&cli.StringFlag{
						Name:     "value",
						Usage:    "Exact-match value (number or string)",
						Required: true,
					},
				},
				Action: deleteCommand,
			},
			{
				Name:      "import",
				Usage:     "Bulk-insert records from a file of JSON lines",
				ArgsUsage: "STORAGE FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent insert workers",
						Value: 4,
					},
				},
				Action: importCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", c.String("log-level"))
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// openClient loads the schema descriptor and opens the database.
func openClient(c *cli.Context) (*stash.Client, error) {
	data, err := os.ReadFile(c.String("schema"))
	if err != nil {
		return nil, err
	}
	var schema core.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", c.String("schema"), err)
	}

	client := stash.New(stash.WithDir(c.String("dir"))).Configure(schema)
	if err := client.Init(c.Context); err != nil {
		return nil, err
	}
	return client, nil
}

func storagesCommand(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	for _, name := range client.Storages() {
		fmt.Println(name)
	}
	return nil
}

func createStorageCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one storage name")
	}
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.CreateStorage(c.Context, c.Args().Get(0))
}

func deleteStorageCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one storage name")
	}
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.DeleteStorage(c.Context, c.Args().Get(0))
}

func dropCommand(c *cli.Context) error {
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.DeleteDatabase(c.Context)
}

func insertCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected STORAGE and a JSON record")
	}
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	var record core.Record
	if err := json.Unmarshal([]byte(c.Args().Get(1)), &record); err != nil {
		return fmt.Errorf("parsing record: %w", err)
	}
	id, err := client.From(c.Args().Get(0)).Insert(c.Context, record)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func selectCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one storage name")
	}
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	q := core.Query{
		Key:   c.String("key"),
		Count: c.Int("count"),
	}
	if c.IsSet("value") {
		q.Value = parseValue(c.String("value"))
	}
	if c.Bool("desc") {
		q.Order = core.OrderDesc
	}

	records, err := client.From(c.Args().Get(0)).Select(c.Context, q)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one storage name")
	}
	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	q := core.Query{
		Key:   c.String("key"),
		Value: parseValue(c.String("value")),
	}
	return client.From(c.Args().Get(0)).Delete(c.Context, q)
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected STORAGE and FILE")
	}
	storageName := c.Args().Get(0)

	client, err := openClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	file, err := os.Open(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer file.Close()

	pool, err := ants.NewPool(c.Int("workers"))
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		inserted int
	)

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record core.Record
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			// Each insert runs on its own selection, so workers never share
			// a target.
			if _, err := client.From(storageName).Insert(c.Context, record); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			inserted++
			mu.Unlock()
		}); err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()

	if err := scanner.Err(); err != nil {
		return err
	}
	if firstErr != nil {
		return firstErr
	}
	fmt.Printf("imported %d records\n", inserted)
	return nil
}

// parseValue interprets a flag value as a number when it parses as one,
// otherwise as a string.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
