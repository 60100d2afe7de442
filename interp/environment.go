package interp

import (
	"tinylambda/runtime"
	"tinylambda/value"
)

// Environment is the tree-walker's scope chain, grounded on the teacher's
// interpreter.Environment but generalized from a single flat map to the
// parent-chained lookup the language's scoping rule requires: "Call looks
// the callee up in the scope chain (child scope falls back to parent)".
//
// Three distinct shapes share this type:
//   - the root environment, backed directly by the runtime Context's
//     globals table, so host-visible state and interpreted top-level
//     assignments are the same map;
//   - a lambda call frame, holding only that call's parameter bindings —
//     per "lambdas capture nothing", it has no parent and falls back
//     straight to the Context for anything that isn't one of its own
//     parameters;
//   - a block-scoped child (entered for an if/else branch), which shadows
//     its parent for the duration of the block and is discarded once it
//     exits.
type Environment struct {
	parent       *Environment
	ctx          *runtime.Context
	values       map[string]*value.Value
	isGlobalRoot bool
}

func MakeGlobalEnvironment(ctx *runtime.Context) *Environment {
	return &Environment{ctx: ctx, isGlobalRoot: true}
}

// MakeLambdaFrame builds an isolated scope for one call: params is already
// populated with the call's argument bindings (or Null for missing args).
func MakeLambdaFrame(ctx *runtime.Context, params map[string]*value.Value) *Environment {
	return &Environment{ctx: ctx, values: params}
}

func MakeChildEnvironment(parent *Environment) *Environment {
	return &Environment{parent: parent, ctx: parent.ctx, values: make(map[string]*value.Value)}
}

func (env *Environment) get(name string) *value.Value {
	if v, ok := env.values[name]; ok {
		return v
	}
	if env.parent != nil {
		return env.parent.get(name)
	}
	if env.ctx != nil {
		return env.ctx.Get(name)
	}
	return value.Null
}

// set binds name in this environment specifically: the global root writes
// through to the shared Context (releasing any value it replaces), every
// other environment shadows in its own local map, never touching an
// ancestor's binding. This is "Assign binds a name in the current scope"
// applied literally.
func (env *Environment) set(name string, v *value.Value) {
	if env.isGlobalRoot {
		if old, ok := env.ctx.Globals[name]; ok {
			old.Release()
		}
		env.ctx.Globals[name] = v
		return
	}
	if env.values == nil {
		env.values = make(map[string]*value.Value)
	}
	env.values[name] = v
}

// lookupLocal reports whether name is reachable through the scope chain
// without falling back to the shared Context — i.e. it is some lambda
// parameter or if-block-scoped binding, not a global. Used to decide
// whether a call target should be treated as a local parameter.
func (env *Environment) lookupLocal(name string) (*value.Value, bool) {
	if v, ok := env.values[name]; ok {
		return v, true
	}
	if env.parent != nil {
		return env.parent.lookupLocal(name)
	}
	return nil, false
}
