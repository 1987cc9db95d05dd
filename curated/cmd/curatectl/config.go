// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/decred/curate/curated/client"
	"github.com/decred/curate/util"
	"github.com/decred/curate/util/version"
	"github.com/decred/dcrd/dcrutil/v3"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "curatectl.conf"
	defaultHost           = "https://127.0.0.1:49474"
)

var (
	defaultHomeDir      = dcrutil.AppDataDir("curatectl", false)
	curatedHomeDir      = dcrutil.AppDataDir("curated", false)
	defaultHTTPSCert    = filepath.Join(curatedHomeDir, "https.cert")
	defaultRequestLimit = uint32(100)
)

// config represents the curatectl configuration settings.
type config struct {
	HomeDir     string `long:"appdata" description:"Path to application home directory"`
	Host        string `long:"host" description:"curated host"`
	HTTPSCert   string `long:"httpscert" description:"curated https certificate"`
	RPCUser     string `long:"rpcuser" description:"RPC user name"`
	RPCPass     string `long:"rpcpass" description:"RPC password"`
	SkipVerify  bool   `long:"skipverify" description:"Skip verifying the server's certifcate chain and host name"`
	Silent      bool   `long:"silent" description:"Suppress all output"`
	ShowVersion bool   `long:"version" description:"Display version information and exit"`
}

// loadConfig initializes and parses the config using a config file and
// command line options. Command line options always take precedence.
func loadConfig() (*config, error) {
	// Default config
	cfg := config{
		HomeDir:   defaultHomeDir,
		Host:      defaultHost,
		HTTPSCert: defaultHTTPSCert,
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified.  The help message flag can be ignored since it
	// will be caught when we parse for the command to execute.
	var opts flags.Options = flags.PassDoubleDash | flags.IgnoreUnknown |
		flags.PrintErrors
	parser := flags.NewParser(&cfg, opts)
	_, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing CLI options: %v", err)
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if cfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		os.Exit(0)
	}

	// Update the application home directory if specified
	if cfg.HomeDir != defaultHomeDir {
		homeDir, err := filepath.Abs(util.CleanAndExpandPath(cfg.HomeDir))
		if err != nil {
			return nil, fmt.Errorf("cleaning path: %v", err)
		}
		cfg.HomeDir = homeDir
	}

	// Load options from config file.  Ignore errors caused by
	// the config file not existing.
	cfgFile := filepath.Join(cfg.HomeDir, defaultConfigFilename)
	cfgParser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(cfgParser).ParseFile(cfgFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			return nil, fmt.Errorf("parsing config file: %v", err)
		}
	}

	// Parse command line options again to ensure they take
	// precedence
	_, err = parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing CLI options: %v", err)
	}

	cfg.HTTPSCert = util.CleanAndExpandPath(cfg.HTTPSCert)
	if !util.FileExists(cfg.HTTPSCert) {
		cfg.HTTPSCert = ""
	}

	return &cfg, nil
}

// newClient returns a curated client for the global config.
func newClient() (*client.Client, error) {
	return client.New(cfg.Host, cfg.HTTPSCert, cfg.RPCUser, cfg.RPCPass,
		cfg.SkipVerify)
}
