// Package monitoring turns a running game into a small web server that
// reports the progress of every round and the state of every component.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/chameneos/broker"
	"github.com/sarchlab/chameneos/creature"
	"github.com/sarchlab/chameneos/game"
	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/id"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/protocol"
)

// RoundState is what the monitor knows about a round.
type RoundState struct {
	Info     game.RoundInfo
	Running  bool
	Total    int
	Duration time.Duration
	Err      string
}

// BrokerState is what the monitor knows about a broker.
type BrokerState struct {
	Phase       string
	Pairings    int
	Remaining   int
	StopsSent   int
	Tallies     int
	Outstanding int

	TalliedMeetings int
	LastPairing     broker.Pairing
}

// CreatureState is what the monitor knows about a creature.
type CreatureState struct {
	State   creature.State
	Stopped bool
}

// Monitor is a hook that records the latest state of every component it is
// attached to and serves it over HTTP.
type Monitor struct {
	portNumber int
	idGen      id.IDGenerator

	lock         sync.Mutex
	progressBars []*ProgressBar
	roundBars    map[string]*ProgressBar
	states       map[string]interface{}
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		idGen:     id.NewParallelIDGenerator(),
		roundBars: make(map[string]*ProgressBar),
		states:    make(map[string]interface{}),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		if portNumber != 0 {
			fmt.Fprintf(os.Stderr,
				"Port number %d is assigned to the monitoring server, "+
					"which is not allowed. Using a random port instead.\n",
				portNumber)
		}

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// Func records the event.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	name := ""
	if named, ok := ctx.Domain.(naming.Named); ok {
		name = named.Name()
	}

	switch ctx.Pos {
	case game.HookPosRoundStart:
		m.startRound(name, ctx.Item.(game.RoundInfo))
	case game.HookPosRoundEnd:
		m.endRound(name, ctx)
	case broker.HookPosPair:
		m.recordPairing(name, ctx.Item.(broker.Pairing))
	case broker.HookPosStopSent, broker.HookPosTally:
		m.recordStopping(name, ctx)
	case creature.HookPosMeet:
		m.setState(name, &CreatureState{State: ctx.Detail.(creature.State)})
	case creature.HookPosStop:
		report := ctx.Item.(creature.FinalReport)
		m.setState(name, &CreatureState{
			State:   creature.State(report),
			Stopped: true,
		})
	}
}

func (m *Monitor) setState(name string, state interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.states[name] = state
}

func (m *Monitor) startRound(name string, info game.RoundInfo) {
	bar := m.CreateProgressBar(name, uint64(info.Budget))

	m.lock.Lock()
	defer m.lock.Unlock()

	m.roundBars[name] = bar
	m.states[name] = &RoundState{Info: info, Running: true}
}

func (m *Monitor) endRound(name string, ctx hooking.HookCtx) {
	result := ctx.Item.(game.RoundResult)
	state := &RoundState{
		Info:     result.RoundInfo,
		Total:    result.Total(),
		Duration: result.Duration,
	}

	if err, ok := ctx.Detail.(error); ok && err != nil {
		state.Err = err.Error()
	}

	m.lock.Lock()
	bar := m.roundBars[name]
	delete(m.roundBars, name)
	m.states[name] = state
	m.lock.Unlock()

	if bar != nil {
		m.CompleteProgressBar(bar)
	}
}

func (m *Monitor) recordPairing(name string, p broker.Pairing) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if bar, ok := m.roundBars[naming.Parent(name)]; ok {
		bar.IncrementFinished(1)
	}

	m.states[name] = &BrokerState{
		Phase:       broker.PhaseMatching.String(),
		Pairings:    p.Seq,
		Remaining:   p.Remaining,
		LastPairing: p,
	}
}

func (m *Monitor) recordStopping(name string, ctx hooking.HookCtx) {
	m.lock.Lock()
	defer m.lock.Unlock()

	prev, _ := m.states[name].(*BrokerState)

	state := &BrokerState{}
	if prev != nil {
		*state = *prev
	}

	state.Phase = broker.PhaseStopping.String()

	switch ctx.Pos {
	case broker.HookPosStopSent:
		state.StopsSent++
	case broker.HookPosTally:
		state.Tallies++
		state.Outstanding = ctx.Detail.(int)
		state.TalliedMeetings += ctx.Item.(protocol.Tally).Meetings

		if state.Outstanding == 0 {
			state.Phase = broker.PhaseDone.String()
		}
	}

	m.states[name] = state
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        m.idGen.Generate(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.lock.Lock()
	defer m.lock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving in the background and returns the URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("starting monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring game with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Router())
		if err != nil {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	return url, nil
}

// OpenInBrowser opens the monitor page in the default browser.
func (m *Monitor) OpenInBrowser(url string) error {
	return browser.OpenURL(url + "/api/progress")
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	views := make([]progressBarView, len(m.progressBars))
	for i, b := range m.progressBars {
		views[i] = b.view()
	}
	m.lock.Unlock()

	writeJSON(w, views)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	names := make([]string, 0, len(m.states))
	for name := range m.states {
		names = append(names, name)
	}
	m.lock.Unlock()

	sort.Strings(names)

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.lock.Lock()
	state, found := m.states[name]
	m.lock.Unlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Component not found"))

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(state)
	serializer.SetMaxDepth(2)

	err := serializer.Serialize(w)
	if err != nil {
		log.Printf("serializing %s: %v", name, err)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
