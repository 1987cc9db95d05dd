// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/decred/curate/curated/backend/curatebe/settlement"
	"github.com/decred/curate/util"
	"github.com/decred/curate/util/version"
	"github.com/decred/dcrd/dcrutil/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "curated.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "curated.log"
	defaultKeyFilename    = "curated.key"

	defaultPort = "49474"

	// Database options
	dbTypeLevelDB = "leveldb"
	dbTypeMySQL   = "mysql"

	defaultDBType = dbTypeLevelDB
	defaultDBHost = "localhost:3306"
	defaultDBUser = "curated"
	defaultDBName = "curated"

	// defaultSettleSchedule runs the settlement job at the top of every
	// hour. Days are counted from genesis and do not line up with the
	// wall clock.
	defaultSettleSchedule = "0 0 * * * *"

	defaultRedisStream   = "curate:events"
	defaultRelayInterval = 5 * time.Second
	defaultWSReadLimit   = 4096
)

var (
	defaultHomeDir       = dcrutil.AppDataDir("curated", false)
	defaultConfigFile    = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir       = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultHTTPSKeyFile  = filepath.Join(defaultHomeDir, "https.key")
	defaultHTTPSCertFile = filepath.Join(defaultHomeDir, "https.cert")
	defaultLogDir        = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultDailyMint     = fmt.Sprintf("%v", settlement.DailyMintAmount)
)

// config defines the configuration options for curated.
//
// See loadConfig for details on the configuration load process.
type config struct {
	HomeDir     string   `short:"A" long:"appdata" description:"Path to application home directory"`
	ShowVersion bool     `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string   `long:"logdir" description:"Directory to log output."`
	DebugLevel  string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Listeners   []string `long:"listen" description:"Add an interface/port to listen for connections (default all interfaces port: 49474)"`
	Version     string
	HTTPSCert   string `long:"httpscert" description:"File containing the https certificate file"`
	HTTPSKey    string `long:"httpskey" description:"File containing the https certificate key"`
	RPCUser     string `long:"rpcuser" description:"RPC user name for privileged commands"`
	RPCPass     string `long:"rpcpass" description:"RPC password for privileged commands"`
	Fsck        bool   `long:"fsck" description:"Verify the accounting invariants on startup"`

	// Database settings
	DBType  string `long:"dbtype" description:"Database type {leveldb, mysql}"`
	DBHost  string `long:"dbhost" description:"MySQL host:port"`
	DBUser  string `long:"dbuser" description:"MySQL user name"`
	DBPass  string `long:"dbpass" description:"MySQL password"`
	DBName  string `long:"dbname" description:"MySQL database name"`
	Encrypt bool   `long:"encrypt" description:"Encrypt blobs at rest"`
	KeyFile string `long:"encryptionkey" description:"File containing the leveldb encryption key; created when missing"`

	// Engine settings
	Owner          string `long:"owner" description:"Account that becomes the owner the first time the daemon is started"`
	Genesis        int64  `long:"genesis" description:"UNIX timestamp that starts day 0; defaults to the first start"`
	DailyMint      string `long:"dailymint" description:"Size of the daily reward pool"`
	SettleSchedule string `long:"settleschedule" description:"Cron schedule of the settlement job; empty disables the job"`

	// Event relay settings
	RedisURL      string        `long:"redisurl" description:"Redis URL of the event stream sink; empty disables the sink"`
	RedisStream   string        `long:"redisstream" description:"Redis stream that events are appended to"`
	RelayInterval time.Duration `long:"relayinterval" description:"Interval between event relay polls"`
	WSReadLimit   int64         `long:"wsreadlimit" description:"Maximum size of a message read from a websocket client"`

	owner     common.Address
	dailyMint *uint256.Int
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsytems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// parseEngineSettings validates the owner and daily mint settings.
func parseEngineSettings(cfg *config) error {
	if cfg.Owner != "" {
		if !common.IsHexAddress(cfg.Owner) {
			return fmt.Errorf("invalid owner address: %v", cfg.Owner)
		}
		cfg.owner = common.HexToAddress(cfg.Owner)
	}
	dailyMint, err := uint256.FromDecimal(cfg.DailyMint)
	if err != nil {
		return fmt.Errorf("invalid daily mint %v: %v", cfg.DailyMint, err)
	}
	if dailyMint.IsZero() {
		return fmt.Errorf("daily mint must be greater than zero")
	}
	cfg.dailyMint = dailyMint
	if cfg.Genesis < 0 {
		return fmt.Errorf("invalid genesis timestamp: %v", cfg.Genesis)
	}

	switch cfg.DBType {
	case dbTypeLevelDB, dbTypeMySQL:
	default:
		return fmt.Errorf("invalid dbtype: %v", cfg.DBType)
	}
	if cfg.DBType == dbTypeMySQL && cfg.Encrypt && cfg.DBPass == "" {
		return fmt.Errorf("dbpass is required to encrypt mysql blobs")
	}

	return nil
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in daemon functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:        defaultHomeDir,
		ConfigFile:     defaultConfigFile,
		DebugLevel:     defaultLogLevel,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		HTTPSKey:       defaultHTTPSKeyFile,
		HTTPSCert:      defaultHTTPSCertFile,
		Version:        version.String(),
		DBType:         defaultDBType,
		DBHost:         defaultDBHost,
		DBUser:         defaultDBUser,
		DBName:         defaultDBName,
		DailyMint:      defaultDailyMint,
		SettleSchedule: defaultSettleSchedule,
		RedisStream:    defaultRedisStream,
		RelayInterval:  defaultRelayInterval,
		WSReadLimit:    defaultWSReadLimit,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory if specified. Since the home directory
	// is updated, other variables need to be updated to reflect the new
	// changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(preCfg.HomeDir)

		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		} else {
			cfg.DataDir = preCfg.DataDir
		}
		if preCfg.HTTPSKey == defaultHTTPSKeyFile {
			cfg.HTTPSKey = filepath.Join(cfg.HomeDir, "https.key")
		} else {
			cfg.HTTPSKey = preCfg.HTTPSKey
		}
		if preCfg.HTTPSCert == defaultHTTPSCertFile {
			cfg.HTTPSCert = filepath.Join(cfg.HomeDir, "https.cert")
		} else {
			cfg.HTTPSCert = preCfg.HTTPSCert
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		var e *os.PathError
		if errors.As(err, &e) && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: Failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	cfg.DataDir = util.CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = util.CleanAndExpandPath(cfg.LogDir)
	cfg.HTTPSKey = util.CleanAndExpandPath(cfg.HTTPSKey)
	cfg.HTTPSCert = util.CleanAndExpandPath(cfg.HTTPSCert)
	if cfg.KeyFile == "" {
		cfg.KeyFile = filepath.Join(cfg.HomeDir, defaultKeyFilename)
	}
	cfg.KeyFile = util.CleanAndExpandPath(cfg.KeyFile)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	if err := parseEngineSettings(&cfg); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	if cfg.RelayInterval <= 0 {
		cfg.RelayInterval = defaultRelayInterval
	}

	// Add the default listener if none were specified. The default
	// listener is all addresses on the listen port.
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{
			net.JoinHostPort("", defaultPort),
		}
	}

	// Add default port to all listener addresses if needed and remove
	// duplicate addresses.
	cfg.Listeners = util.NormalizeAddresses(cfg.Listeners, defaultPort)

	// Set random username and password when not specified
	if cfg.RPCUser == "" {
		name, err := util.RandomString(32)
		if err != nil {
			return nil, nil, err
		}
		cfg.RPCUser = name
		log.Warnf("RPC user name not set, using random value")
	}
	if cfg.RPCPass == "" {
		pass, err := util.RandomString(32)
		if err != nil {
			return nil, nil, err
		}
		cfg.RPCPass = pass
		log.Warnf("RPC password not set, using random value")
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		log.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
