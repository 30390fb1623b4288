package main

import (
	"flag"
	"io/ioutil"
	"log"
	"os"
	"path"

	"github.com/onemorebsmith/league-calc/src/daemon"
	"gopkg.in/yaml.v2"
)

func main() {
	pwd, _ := os.Getwd()
	fullPath := path.Join(pwd, "config.yaml")
	log.Printf("loading config @ `%s`", fullPath)
	rawCfg, err := ioutil.ReadFile(fullPath)
	if err != nil {
		log.Printf("config file not found: %s", err)
		os.Exit(1)
	}
	cfg := daemon.DaemonConfig{}
	if err := yaml.Unmarshal(rawCfg, &cfg); err != nil {
		log.Printf("failed parsing config file: %s", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.Store, "store", cfg.Store, "store backend: memory, redis or sqlite, default `memory`")
	flag.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "address of the redis server, e.g. `localhost:6379`")
	flag.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "path of the sqlite database file")
	flag.StringVar(&cfg.PostgresConfig, "pg", cfg.PostgresConfig, `postgres connection string for snapshot history, or "docker" for the local compose db`)
	flag.StringVar(&cfg.PromPort, "prom", cfg.PromPort, "address to serve prom stats, default `:2112`")
	flag.StringVar(&cfg.HealthCheckPort, "hcp", cfg.HealthCheckPort, `(rarely used) if defined will expose a health check on /readyz, default ""`)
	flag.StringVar(&cfg.BridgePort, "bridge", cfg.BridgePort, "address to serve the bridge on, default `:2115`")
	flag.StringVar(&cfg.WSURL, "ws", cfg.WSURL, "game websocket url")
	flag.StringVar(&cfg.AuthToken, "token", cfg.AuthToken, "league api bearer token")
	flag.StringVar(&cfg.Fiat, "fiat", cfg.Fiat, "fiat currency for cached prices, default `USDT`")
	flag.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level, default `info`")

	flag.Parse()

	log.Println("----------------------------------")
	log.Printf("initializing league calc")
	log.Printf("\tstore:         %s", cfg.Store)
	log.Printf("\tredis:         %s", cfg.RedisAddress)
	log.Printf("\tsqlite:        %s", cfg.SQLitePath)
	log.Printf("\tprom:          %s", cfg.PromPort)
	log.Printf("\thealth check:  %s", cfg.HealthCheckPort)
	log.Printf("\tbridge:        %s", cfg.BridgePort)
	log.Printf("\twebsocket:     %s", cfg.WSURL)
	log.Printf("\tleague api:    %t", cfg.AuthToken != "")
	log.Printf("\thistory:       %t", cfg.PostgresConfig != "")
	log.Println("----------------------------------")

	if err := daemon.ListenAndServe(cfg); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
