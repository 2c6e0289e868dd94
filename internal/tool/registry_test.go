package tool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/concierge/internal/tool"
)

func echoHandler(_ context.Context, args tool.Args) (any, error) {
	return args, nil
}

func TestRegister_DuplicateName(t *testing.T) {
	t.Parallel()

	r := tool.New()
	require.NoError(t, r.Register(tool.Descriptor{Name: "check_hotel"}, echoHandler))

	err := r.Register(tool.Descriptor{Name: "check_hotel"}, echoHandler)
	require.Error(t, err)
	require.ErrorIs(t, err, tool.ErrDuplicateTool)

	var dup *tool.DuplicateToolError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "check_hotel", dup.Name)
	require.Equal(t, 1, r.Len())
}

func TestRegister_RejectsEmptyNameAndNilHandler(t *testing.T) {
	t.Parallel()

	r := tool.New()
	require.Error(t, r.Register(tool.Descriptor{}, echoHandler))
	require.Error(t, r.Register(tool.Descriptor{Name: "x"}, nil))
	require.Zero(t, r.Len())
}

func TestDescribeAll_StableRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := tool.New()
	names := []string{"get_date", "check_hotel", "book_hotel", "list_hotels"}
	for _, n := range names {
		r.MustRegister(tool.Descriptor{Name: n}, echoHandler)
	}

	for range 3 {
		got := r.DescribeAll()
		require.Len(t, got, len(names))
		for i, d := range got {
			require.Equal(t, names[i], d.Name)
		}
	}
}

func TestDescribeAll_ReturnsCopies(t *testing.T) {
	t.Parallel()

	r := tool.New()
	r.MustRegister(tool.Descriptor{
		Name:   "check_hotel",
		Params: []tool.Param{{Name: "name", Type: tool.TypeString, Required: true}},
	}, echoHandler)

	first := r.DescribeAll()
	first[0].Params[0].Name = "mutated"

	require.Equal(t, "name", r.DescribeAll()[0].Params[0].Name)
}

func TestInvoke_UnknownTool(t *testing.T) {
	t.Parallel()

	r := tool.New()
	_, err := r.Invoke(context.Background(), "ghost", nil)

	var unknown *tool.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "ghost", unknown.Name)
}

func TestInvoke_PassesArguments(t *testing.T) {
	t.Parallel()

	r := tool.New()
	r.MustRegister(tool.Descriptor{
		Name:   "check_hotel",
		Params: []tool.Param{{Name: "name", Type: tool.TypeString, Required: true}},
	}, func(_ context.Context, args tool.Args) (any, error) {
		name, err := args.String("name")
		if err != nil {
			return nil, err
		}
		return name + " is available", nil
	})

	out, err := r.Invoke(context.Background(), "check_hotel", tool.Args{"name": "Sunrise Inn"})
	require.NoError(t, err)
	require.Equal(t, "Sunrise Inn is available", out)
}

func TestInvoke_MissingRequiredArgument(t *testing.T) {
	t.Parallel()

	called := false
	r := tool.New()
	r.MustRegister(tool.Descriptor{
		Name:   "check_hotel",
		Params: []tool.Param{{Name: "name", Type: tool.TypeString, Required: true}},
	}, func(context.Context, tool.Args) (any, error) {
		called = true
		return nil, nil
	})

	_, err := r.Invoke(context.Background(), "check_hotel", tool.Args{})

	var invalid *tool.InvalidArgumentsError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "check_hotel", invalid.Tool)
	require.Contains(t, invalid.Reason, `"name"`)
	require.False(t, called, "handler must not run with missing required arguments")
}

func TestInvoke_WrongArgumentType(t *testing.T) {
	t.Parallel()

	r := tool.New()
	r.MustRegister(tool.Descriptor{
		Name:   "book_hotel",
		Params: []tool.Param{{Name: "rooms", Type: tool.TypeInteger, Required: true}},
	}, echoHandler)

	_, err := r.Invoke(context.Background(), "book_hotel", tool.Args{"rooms": 1.5})
	var invalid *tool.InvalidArgumentsError
	require.ErrorAs(t, err, &invalid)

	_, err = r.Invoke(context.Background(), "book_hotel", tool.Args{"rooms": float64(2)})
	require.NoError(t, err, "whole JSON numbers satisfy integer parameters")
}

func TestInvoke_OptionalArgumentsTolerated(t *testing.T) {
	t.Parallel()

	r := tool.New()
	r.MustRegister(tool.Descriptor{
		Name: "book_hotel",
		Params: []tool.Param{
			{Name: "name", Type: tool.TypeString, Required: true},
			{Name: "guest_details", Type: tool.TypeString},
		},
	}, func(_ context.Context, args tool.Args) (any, error) {
		return args.OptionalString("guest_details", "none")
	})

	out, err := r.Invoke(context.Background(), "book_hotel", tool.Args{"name": "X"})
	require.NoError(t, err)
	require.Equal(t, "none", out)
}

func TestInvoke_HandlerFailureWrapped(t *testing.T) {
	t.Parallel()

	cause := errors.New("inventory offline")
	r := tool.New()
	r.MustRegister(tool.Descriptor{Name: "check_hotel"}, func(context.Context, tool.Args) (any, error) {
		return nil, cause
	})

	_, err := r.Invoke(context.Background(), "check_hotel", nil)

	var execErr *tool.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "check_hotel", execErr.Tool)
	require.ErrorIs(t, err, cause)
}

func TestInvoke_HandlerInvalidArgumentsPassThrough(t *testing.T) {
	t.Parallel()

	r := tool.New()
	r.MustRegister(tool.Descriptor{Name: "book_hotel"}, func(_ context.Context, args tool.Args) (any, error) {
		return args.Int("rooms")
	})

	_, err := r.Invoke(context.Background(), "book_hotel", tool.Args{"rooms": "many"})

	var invalid *tool.InvalidArgumentsError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "book_hotel", invalid.Tool)

	var execErr *tool.ExecutionError
	require.False(t, errors.As(err, &execErr))
}

func TestInvoke_PanicRecovered(t *testing.T) {
	t.Parallel()

	r := tool.New()
	r.MustRegister(tool.Descriptor{Name: "explode"}, func(context.Context, tool.Args) (any, error) {
		panic("boom")
	})

	out, err := r.Invoke(context.Background(), "explode", nil)
	require.Nil(t, out)

	var execErr *tool.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Contains(t, err.Error(), "boom")
}

func TestDescriptorSchema(t *testing.T) {
	t.Parallel()

	d := tool.Descriptor{
		Name: "book_hotel",
		Params: []tool.Param{
			{Name: "name", Type: tool.TypeString, Description: "hotel name", Required: true},
			{Name: "rooms", Type: tool.TypeInteger},
		},
	}

	schema := d.Schema()
	require.Equal(t, "object", schema["type"])
	require.Equal(t, []string{"name"}, schema["required"])

	props := schema["properties"].(map[string]any)
	require.Equal(t, map[string]any{"type": "string", "description": "hotel name"}, props["name"])
	require.Equal(t, map[string]any{"type": "integer"}, props["rooms"])
}
