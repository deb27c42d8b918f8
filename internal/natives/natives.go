// Package natives registers the domain-stack native-function groups
// SPEC_FULL.md §3 adds on top of the core print/abs builtins: sqlite
// persistence, strftime-based time formatting, and a DynamoDB client
// dispatched through a separate plugin process. Each group is an ordinary
// entry in the same NativeFunction registry spec.md §4.5 describes —
// wiring a new native here never touches the AST or bytecode.
package natives

import "langvm/internal/vm"

// Config collects the knobs the domain-stack natives need at startup:
// where to look for the dynamodb plugin binary and what to name it.
type Config struct {
	RootPath           string
	DynamoPluginName   string
	DynamoPluginBinary string
}

// DefaultConfig mirrors the teacher's plugin naming convention
// (noxy_libs/dynamodb/plugin), renamed to this project's own layout.
func DefaultConfig(rootPath string) Config {
	return Config{
		RootPath:           rootPath,
		DynamoPluginName:   "dynamodb",
		DynamoPluginBinary: "langvm-plugin-dynamodb",
	}
}

// RegisterAll installs every domain-stack native group into machine's
// global table. cmd/langvm calls this once per VM right after
// vm.NewWithConfig, the same moment estevaofon-noxy's cmd/noxy wires its
// own sprawling native set.
func RegisterAll(machine *vm.VM, cfg Config) {
	registerSQLite(machine)
	registerStrftime(machine)
	registerDynamo(machine, cfg)
}
