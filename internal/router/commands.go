package router

import "strings"

// CmdID enumerates the known API methods. The zero value means unknown.
type CmdID int

const (
	CmdUnknown CmdID = iota

	// myMPD core
	CmdMympdPing
	CmdMympdScriptPostExecute
	CmdMympdScriptList
	CmdMympdScriptGet
	CmdMympdScriptSave
	CmdMympdScriptDelete
	CmdMympdScriptExecute
	CmdMympdSettingsGet
	CmdMympdSettingsSet
	CmdMympdConnectionSave
	CmdMympdColsSave
	CmdMympdTimerList
	CmdMympdTimerSave
	CmdMympdHomeIconList
	CmdMympdStateSave
	CmdMympdJukeboxRefill

	// MPD worker (long running)
	CmdMpdworkerSmartplsUpdate
	CmdMpdworkerSmartplsUpdateAll
	CmdMpdworkerPlaylistShuffle
	CmdMpdworkerPlaylistSort

	// MPD client
	CmdMpdPlayerState
	CmdMpdPlayerPlay
	CmdMpdPlayerPause
	CmdMpdPlayerNext
	CmdMpdPlayerPrev
	CmdMpdQueueList
	CmdMpdQueueClear
	CmdMpdQueueAddTrack
	CmdMpdDatabaseSearch
	CmdMpdDatabaseUpdate
	CmdMpdPlaylistList
	CmdMpdAlbumart
	CmdMpdStateSave
)

type command struct {
	id     CmdID
	public bool
}

// commands maps method names to ids. Private methods are only ever produced
// internally (timers, shutdown) and must not be callable from the network.
var commands = map[string]command{
	"MYMPD_API_PING":                {CmdMympdPing, true},
	"MYMPD_API_SCRIPT_POST_EXECUTE": {CmdMympdScriptPostExecute, true},
	"MYMPD_API_SCRIPT_LIST":         {CmdMympdScriptList, true},
	"MYMPD_API_SCRIPT_GET":          {CmdMympdScriptGet, true},
	"MYMPD_API_SCRIPT_SAVE":         {CmdMympdScriptSave, true},
	"MYMPD_API_SCRIPT_DELETE":       {CmdMympdScriptDelete, true},
	"MYMPD_API_SCRIPT_EXECUTE":      {CmdMympdScriptExecute, true},
	"MYMPD_API_SETTINGS_GET":        {CmdMympdSettingsGet, true},
	"MYMPD_API_SETTINGS_SET":        {CmdMympdSettingsSet, true},
	"MYMPD_API_CONNECTION_SAVE":     {CmdMympdConnectionSave, true},
	"MYMPD_API_COLS_SAVE":           {CmdMympdColsSave, true},
	"MYMPD_API_TIMER_LIST":          {CmdMympdTimerList, true},
	"MYMPD_API_TIMER_SAVE":          {CmdMympdTimerSave, true},
	"MYMPD_API_HOME_ICON_LIST":      {CmdMympdHomeIconList, true},
	"MYMPD_API_STATE_SAVE":          {CmdMympdStateSave, false},
	"MYMPD_API_JUKEBOX_REFILL":      {CmdMympdJukeboxRefill, false},

	"MPDWORKER_API_SMARTPLS_UPDATE":     {CmdMpdworkerSmartplsUpdate, true},
	"MPDWORKER_API_SMARTPLS_UPDATE_ALL": {CmdMpdworkerSmartplsUpdateAll, false},
	"MPDWORKER_API_PLAYLIST_SHUFFLE":    {CmdMpdworkerPlaylistShuffle, true},
	"MPDWORKER_API_PLAYLIST_SORT":       {CmdMpdworkerPlaylistSort, true},

	"MPD_API_PLAYER_STATE":     {CmdMpdPlayerState, true},
	"MPD_API_PLAYER_PLAY":      {CmdMpdPlayerPlay, true},
	"MPD_API_PLAYER_PAUSE":     {CmdMpdPlayerPause, true},
	"MPD_API_PLAYER_NEXT":      {CmdMpdPlayerNext, true},
	"MPD_API_PLAYER_PREV":      {CmdMpdPlayerPrev, true},
	"MPD_API_QUEUE_LIST":       {CmdMpdQueueList, true},
	"MPD_API_QUEUE_CLEAR":      {CmdMpdQueueClear, true},
	"MPD_API_QUEUE_ADD_TRACK":  {CmdMpdQueueAddTrack, true},
	"MPD_API_DATABASE_SEARCH":  {CmdMpdDatabaseSearch, true},
	"MPD_API_DATABASE_UPDATE":  {CmdMpdDatabaseUpdate, true},
	"MPD_API_PLAYLIST_LIST":    {CmdMpdPlaylistList, true},
	"MPD_API_ALBUMART":         {CmdMpdAlbumart, true},
	"MPD_API_STATE_SAVE":       {CmdMpdStateSave, false},
}

var commandNames = func() map[CmdID]string {
	names := make(map[CmdID]string, len(commands))
	for name, c := range commands {
		names[c.id] = name
	}
	return names
}()

// LookupCmd returns the id for method, or CmdUnknown.
func LookupCmd(method string) CmdID {
	return commands[method].id
}

// IsPublic reports whether id may be invoked from the network boundary.
func IsPublic(id CmdID) bool {
	name, ok := commandNames[id]
	if !ok {
		return false
	}
	return commands[name].public
}

// String returns the method name.
func (id CmdID) String() string {
	if name, ok := commandNames[id]; ok {
		return name
	}
	return "UNKNOWN"
}

// Destination names one of the request queues.
type Destination string

const (
	DestAPI    Destination = "api"
	DestWorker Destination = "worker"
	DestClient Destination = "client"
)

// Method name prefixes that select a destination.
const (
	PrefixAPI    = "MYMPD_API_"
	PrefixWorker = "MPDWORKER_API_"
)

// DestinationFor applies the prefix routing policy to a method name.
func DestinationFor(method string) Destination {
	switch {
	case strings.HasPrefix(method, PrefixAPI):
		return DestAPI
	case strings.HasPrefix(method, PrefixWorker):
		return DestWorker
	default:
		return DestClient
	}
}
