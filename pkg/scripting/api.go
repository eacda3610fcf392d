package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/veilbrook/npcmem/pkg/log"
)

// registerAPIFunctions registers Go functions available to Lua scripts
// under the npcmem table.
func registerAPIFunctions(L *lua.LState) {
	npcmem := L.NewTable()

	L.SetField(npcmem, "log", L.NewFunction(apiLog))
	L.SetField(npcmem, "now", L.NewFunction(apiNow))
	L.SetField(npcmem, "format_time", L.NewFunction(apiFormatTime))

	L.SetGlobal("npcmem", npcmem)
}

// apiLog logs a message from Lua at the requested level.
func apiLog(L *lua.LState) int {
	level := L.CheckString(1)
	message := L.CheckString(2)

	switch level {
	case "debug":
		log.Debug("Lua script message", "message", message)
	case "warn", "warning":
		log.Warn("Lua script message", "message", message)
	case "error":
		log.Error("Lua script message", "message", message)
	default:
		log.Info("Lua script message", "message", message)
	}
	return 0
}

// apiNow returns the current time as a Unix timestamp.
func apiNow(L *lua.LState) int {
	L.Push(lua.LNumber(time.Now().Unix()))
	return 1
}

// apiFormatTime formats a Unix timestamp as a string.
func apiFormatTime(L *lua.LState) int {
	timestamp := L.CheckNumber(1)
	format := L.OptString(2, time.RFC3339)

	t := time.Unix(int64(timestamp), 0).UTC()
	L.Push(lua.LString(t.Format(format)))
	return 1
}
