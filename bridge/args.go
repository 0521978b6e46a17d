package bridge

import (
	"fmt"

	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/managed"
)

func argErr(op string, i int, want string, got any) error {
	return errors.New(errors.PhaseNative, errors.KindInvalidArgument).
		Op(op).
		Detail("argument %d: want %s, got %s", i, want, typeOf(got)).
		Build()
}

func typeOf(v any) string {
	if obj, ok := v.(*managed.Object); ok && obj != nil {
		return obj.TypeName()
	}
	return fmt.Sprintf("%T", v)
}

// arity checks the argument count.
func arity(op string, args []any, n int) error {
	if len(args) != n {
		return errors.New(errors.PhaseNative, errors.KindInvalidArgument).
			Op(op).
			Detail("want %d arguments, got %d", n, len(args)).
			Build()
	}
	return nil
}

// arg returns args[i] as T.
func arg[T any](op string, args []any, i int) (T, error) {
	v, ok := args[i].(T)
	if !ok {
		var zero T
		return zero, argErr(op, i, fmt.Sprintf("%T", zero), args[i])
	}
	return v, nil
}

// intArg accepts any Go integer type.
func intArg(op string, args []any, i int) (int64, error) {
	switch v := args[i].(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	default:
		return 0, argErr(op, i, "integer", args[i])
	}
}

// objectArg returns args[i] as a managed object of typeName. An empty
// typeName accepts any object.
func objectArg(op string, args []any, i int, typeName string) (*managed.Object, error) {
	obj, ok := args[i].(*managed.Object)
	if !ok || obj == nil {
		return nil, argErr(op, i, typeName, args[i])
	}
	if typeName != "" && obj.TypeName() != typeName {
		return nil, argErr(op, i, typeName, obj)
	}
	return obj, nil
}

// peer returns the Go value stored in an instance field.
func peer[T any](op string, obj *managed.Object, field string) (T, error) {
	v, ok := obj.Field(field).(T)
	if !ok {
		var zero T
		return zero, errors.InvalidHandle(errors.PhaseNative, op)
	}
	return v, nil
}

// bufferArg returns args[i] as a byte buffer.
func bufferArg(op string, args []any, i int) (*managed.Object, error) {
	return objectArg(op, args, i, managed.ByteArrayType)
}
