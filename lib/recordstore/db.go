package recordstore

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type DBConfig struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

var remoteSchemes = []string{"libsql://", "https://", "http://", "wss://", "ws://"}

// ParseTarget turns a --db argument into a DBConfig, remote libsql urls are
// told apart from local paths by their scheme.
func ParseTarget(target, authToken string) DBConfig {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(target, scheme) {
			return DBConfig{Url: target, AuthToken: authToken}
		}
	}
	return DBConfig{File: strings.TrimPrefix(target, "file:")}
}

func (config DBConfig) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		target := config.Url
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
		return sql.Open("libsql", target)
	}

	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}
	if config.File != ":memory:" {
		_, statErr := os.Stat(config.File)
		if os.IsNotExist(statErr) {
			f, err := os.Create(config.File)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite does not handle concurrent writers, and every connection to
	// :memory: is its own database
	db.SetMaxOpenConns(1)
	if config.File != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
