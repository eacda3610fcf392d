package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/veilbrook/npcmem/pkg/log"
)

// setupSandbox configures a restricted environment for Lua scripts.
// Only the base, string, table, and math libraries are available.
func setupSandbox(L *lua.LState) {
	L.Push(L.NewFunction(lua.OpenBase))
	L.Push(lua.LString(lua.BaseLibName))
	L.Call(1, 0)

	L.Push(L.NewFunction(lua.OpenString))
	L.Push(lua.LString(lua.StringLibName))
	L.Call(1, 0)

	L.Push(L.NewFunction(lua.OpenTable))
	L.Push(lua.LString(lua.TabLibName))
	L.Call(1, 0)

	L.Push(L.NewFunction(lua.OpenMath))
	L.Push(lua.LString(lua.MathLibName))
	L.Call(1, 0)

	// Unsafe modules stay out of reach even if opened transitively
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("package", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)

	L.SetGlobal("print", L.NewFunction(safePrint))
}

// safePrint redirects Lua's print to the structured logger.
func safePrint(L *lua.LState) int {
	top := L.GetTop()
	args := make([]interface{}, top)
	for i := 1; i <= top; i++ {
		args[i-1] = convertLuaToGo(L.Get(i))
	}
	log.Debug("Lua print", "args", args)
	return 0
}
