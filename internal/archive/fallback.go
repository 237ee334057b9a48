package archive

import "io"

// Fallback delegates to its primary backend, or to the secondary one when
// the primary's probe failed. The probe runs once, in NewFallback.
type Fallback struct {
	primary   Archiver
	secondary Archiver
	active    Archiver
	probeErr  error
}

// NewFallback probes primary if it implements Prober.
func NewFallback(primary, secondary Archiver) *Fallback {
	f := &Fallback{primary: primary, secondary: secondary, active: primary}
	if p, ok := primary.(Prober); ok {
		if err := p.Probe(); err != nil {
			f.probeErr = err
			f.active = secondary
		}
	}
	return f
}

// NewAuto prefers the in-process writer and falls back to the external
// program.
func NewAuto(program string) *Fallback {
	return NewFallback(NewLibrary(), NewCommand(program))
}

// Active returns the backend in use.
func (f *Fallback) Active() Archiver { return f.active }

// ProbeErr returns why the primary backend was rejected, or nil.
func (f *Fallback) ProbeErr() error { return f.probeErr }

func (f *Fallback) Begin(w io.Writer) error { return f.active.Begin(w) }

func (f *Fallback) WriteEntry(name string, data []byte, compress bool) error {
	return f.active.WriteEntry(name, data, compress)
}

func (f *Fallback) Finish() error { return f.active.Finish() }
