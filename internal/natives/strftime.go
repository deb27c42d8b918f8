package natives

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"

	"langvm/internal/object"
	"langvm/internal/vm"
)

// time_format(fmt, unix_seconds) -> String, ported in spirit from
// estevaofon-noxy/internal/vm/vm.go's time_format/time_format_custom
// native family, trimmed to the single strftime-layout entry point.
func registerStrftime(machine *vm.VM) {
	machine.DefineNative("time_format", 2, func(args []object.Object) (object.Object, error) {
		layout := args[0].Value.String()
		if args[1].Value.Kind != object.KindInteger {
			return object.Object{}, fmt.Errorf("time_format: second argument must be Integer (unix seconds)")
		}
		t := time.Unix(args[1].Value.Int, 0).UTC()
		out, err := strftime.Format(layout, t)
		if err != nil {
			return object.Object{}, fmt.Errorf("time_format: %w", err)
		}
		return object.New(object.String(out)), nil
	})

	machine.DefineNative("time_now", 0, func(args []object.Object) (object.Object, error) {
		return object.New(object.Integer(time.Now().Unix())), nil
	})
}
