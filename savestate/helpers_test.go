package savestate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	emucore "github.com/user-none/savestates/api"
	"github.com/user-none/savestates/notify"
)

var (
	hashA = strings.Repeat("a", 40)
	hashB = strings.Repeat("b", 40)
)

// fakeMachine stores its state as a plain byte slice
type fakeMachine struct {
	id         emucore.RomIdentity
	state      []byte
	restored   []byte
	restoredAt uint32
	loadCalls  int
	saveErr    error
	loadErr    error
	onSave     func()
}

func (m *fakeMachine) SaveState(w io.Writer) error {
	if m.onSave != nil {
		m.onSave()
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	_, err := w.Write(m.state)
	return err
}

func (m *fakeMachine) LoadState(r io.Reader, formatVersion uint32) error {
	m.loadCalls++
	if m.loadErr != nil {
		return m.loadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.restored = data
	m.restoredAt = formatVersion
	return nil
}

func (m *fakeMachine) Identity() emucore.RomIdentity {
	return m.id
}

// fakePauser records the pause bracket
type fakePauser struct {
	mu      sync.Mutex
	pauses  int
	resumes int
	stops   int
	depth   int
}

func (p *fakePauser) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	p.depth++
}

func (p *fakePauser) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
	p.depth--
}

func (p *fakePauser) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePauser) balanced(t *testing.T) {
	t.Helper()
	if p.depth != 0 {
		t.Errorf("pause bracket unbalanced: %d pauses, %d resumes", p.pauses, p.resumes)
	}
}

// fakeLoader swaps the machine identity when asked to load a ROM
type fakeLoader struct {
	machine   *fakeMachine
	byID      map[string]emucore.RomIdentity
	calls     []string
	fileCalls []string
	err       error
	panicMsg  string
}

func (l *fakeLoader) LoadROMByIdentity(name, sha1 string) error {
	l.calls = append(l.calls, name+"|"+sha1)
	if l.err != nil {
		return l.err
	}
	id, ok := l.byID[sha1]
	if !ok {
		return errors.New("not found")
	}
	if l.machine != nil {
		l.machine.id = id
	}
	return nil
}

func (l *fakeLoader) LoadROMFile(path, patchPath string) error {
	l.fileCalls = append(l.fileCalls, path+"|"+patchPath)
	if l.panicMsg != "" {
		panic(l.panicMsg)
	}
	if l.err != nil {
		return l.err
	}
	for _, id := range l.byID {
		if id.RomName != "" && strings.HasSuffix(path, id.RomName) && l.machine != nil {
			l.machine.id = id
		}
	}
	return nil
}

type notice struct {
	event notify.Event
	args  []string
}

type recordingNotifier struct {
	notices []notice
}

func (n *recordingNotifier) Notify(event notify.Event, args ...string) {
	n.notices = append(n.notices, notice{event, args})
}

func (n *recordingNotifier) last() (notice, bool) {
	if len(n.notices) == 0 {
		return notice{}, false
	}
	return n.notices[len(n.notices)-1], true
}

type recordingDebugger struct {
	events []emucore.DebugEvent
}

func (d *recordingDebugger) ProcessEvent(e emucore.DebugEvent) {
	d.events = append(d.events, e)
}

type movieStopper struct {
	stops int
}

func (m *movieStopper) Stop() {
	m.stops++
}

type fakeScreenshotter struct {
	data []byte
	err  error
}

func (s *fakeScreenshotter) Screenshot(w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := w.Write(s.data)
	return err
}

// legacyState builds a stream in the layout of an older format version
func legacyState(writer, format uint32, mapper uint16, subMapper uint8, hash, name string, payload []byte) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString(Magic)
	buf.Write(le.AppendUint32(nil, writer))
	buf.Write(le.AppendUint32(nil, format))
	if format >= 8 {
		buf.Write(le.AppendUint16(nil, mapper))
		buf.WriteByte(subMapper)
	}
	if format >= 6 {
		h := make([]byte, 40)
		copy(h, hash)
		buf.Write(h)
		buf.Write(le.AppendUint32(nil, uint32(len(name))))
		buf.WriteString(name)
	}
	buf.Write(payload)
	return buf.Bytes()
}

// countingReader records how many bytes were consumed
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
