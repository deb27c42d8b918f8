package natives

import (
	"fmt"
	"sync"

	"langvm/internal/object"
	"langvm/internal/plugin"
	"langvm/internal/vm"
)

// dynamo_connect/dynamo_put/dynamo_get/dynamo_delete/dynamo_scan/
// dynamo_query, ported from estevaofon-noxy's cmd/noxy-plugin-dynamodb
// main.go and internal/plugin/plugin.go: every call is a JSON-RPC round
// trip to a lazily-started langvm-plugin-dynamodb subprocess. A
// dynamo_connect handle and an item's key/value are always plain strings,
// since object.Value carries no map kind to hold a full DynamoDB item.
type dynamoState struct {
	mu     sync.Mutex
	client *plugin.Client
}

func registerDynamo(machine *vm.VM, cfg Config) {
	state := &dynamoState{}

	ensure := func() (*plugin.Client, error) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.client != nil {
			return state.client, nil
		}
		c, err := plugin.Load(cfg.RootPath, cfg.DynamoPluginName, cfg.DynamoPluginBinary)
		if err != nil {
			return nil, err
		}
		state.client = c
		return c, nil
	}

	machine.DefineNative("dynamo_connect", 1, func(args []object.Object) (object.Object, error) {
		region := args[0].Value.String()
		c, err := ensure()
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_connect: %w", err)
		}
		result, err := c.Call("connect", []interface{}{region})
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_connect: %w", err)
		}
		id, ok := result.(string)
		if !ok {
			return object.Object{}, fmt.Errorf("dynamo_connect: unexpected plugin result %T", result)
		}
		return object.New(object.String(id)), nil
	})

	machine.DefineNative("dynamo_put", 4, func(args []object.Object) (object.Object, error) {
		c, err := ensure()
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_put: %w", err)
		}
		_, err = c.Call("put_item", []interface{}{
			args[0].Value.String(), args[1].Value.String(), args[2].Value.String(), args[3].Value.String(),
		})
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_put: %w", err)
		}
		return object.NewTrue(), nil
	})

	machine.DefineNative("dynamo_get", 3, func(args []object.Object) (object.Object, error) {
		c, err := ensure()
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_get: %w", err)
		}
		result, err := c.Call("get_item", []interface{}{
			args[0].Value.String(), args[1].Value.String(), args[2].Value.String(),
		})
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_get: %w", err)
		}
		if result == nil {
			return object.NewNone(), nil
		}
		s, ok := result.(string)
		if !ok {
			return object.Object{}, fmt.Errorf("dynamo_get: unexpected plugin result %T", result)
		}
		return object.New(object.String(s)), nil
	})

	machine.DefineNative("dynamo_delete", 3, func(args []object.Object) (object.Object, error) {
		c, err := ensure()
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_delete: %w", err)
		}
		_, err = c.Call("delete_item", []interface{}{
			args[0].Value.String(), args[1].Value.String(), args[2].Value.String(),
		})
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_delete: %w", err)
		}
		return object.NewTrue(), nil
	})

	machine.DefineNative("dynamo_scan", 2, func(args []object.Object) (object.Object, error) {
		c, err := ensure()
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_scan: %w", err)
		}
		result, err := c.Call("scan", []interface{}{args[0].Value.String(), args[1].Value.String()})
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_scan: %w", err)
		}
		return object.New(object.String(joinPairs(result))), nil
	})

	machine.DefineNative("dynamo_query", 3, func(args []object.Object) (object.Object, error) {
		c, err := ensure()
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_query: %w", err)
		}
		result, err := c.Call("query", []interface{}{
			args[0].Value.String(), args[1].Value.String(), args[2].Value.String(),
		})
		if err != nil {
			return object.Object{}, fmt.Errorf("dynamo_query: %w", err)
		}
		return object.New(object.String(joinPairs(result))), nil
	})
}

// joinPairs flattens a plugin-returned []interface{} of strings into one
// comma-joined String, the same "one scalar back" simplification
// sqlite_query's tab/newline join uses for rows.
func joinPairs(result interface{}) string {
	items, ok := result.([]interface{})
	if !ok {
		return fmt.Sprintf("%v", result)
	}
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%v", it)
	}
	return out
}
