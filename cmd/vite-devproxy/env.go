package main

import (
	"os"
	"strconv"
	"time"
)

// Environment variables consulted when a flag is not given on the command line.
const (
	envConfigFile  = "VITE_DEVPROXY_CONFIG"
	envAppRoot     = "VITE_DEVPROXY_APP_ROOT"
	envDebug       = "VITE_DEVPROXY_DEBUG"
	envLogFormat   = "VITE_DEVPROXY_LOG_FORMAT"
	envLogFile     = "VITE_DEVPROXY_LOG_FILE"
	envListenAddr  = "VITE_DEVPROXY_LISTEN_ADDR"
	envMountPrefix = "VITE_DEVPROXY_MOUNT_PREFIX"
	envUpstream    = "VITE_DEVPROXY_APP"
	envPublicDir   = "VITE_DEVPROXY_PUBLIC_DIR"
	envDevCommand  = "VITE_DEVPROXY_DEV_COMMAND"
	envAutoRun     = "VITE_DEVPROXY_AUTO_RUN"
	envStopOnExit  = "VITE_DEVPROXY_STOP_ON_EXIT"
	envLockFile    = "VITE_DEVPROXY_LOCK_FILE"
	envPIDFile     = "VITE_DEVPROXY_PID_FILE"
	envDevLogFile  = "VITE_DEVPROXY_DEV_LOG_FILE"
	envViteConfig  = "VITE_DEVPROXY_VITE_CONFIG"
	envReadTimeout = "VITE_DEVPROXY_READ_TIMEOUT"
	envKeepalive   = "VITE_DEVPROXY_KEEPALIVE"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fallback
		}
		return d
	}
	return fallback
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}
