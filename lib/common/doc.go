// Package common provides the configuration structures and the logging setup shared
// by the dSync libraries and the command line interface.
//
// Key Components:
//
//   - CounterConfig, LedgerConfig, DineConfig: the parameters of the three
//     workloads. Each one has defaults used when no flag is given and a String
//     method used by the CLI to print the active configuration.
//
//   - Logger: custom logging implementation for Dragonboat's logger.ILogger
//     interface. All packages obtain their logger with logger.GetLogger(name);
//     InitLoggers installs the factory and sets the level of every known logger,
//     so all log lines share the format "LEVEL | package | message".
package common
