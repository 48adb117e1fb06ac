package mp4meta

// AtomsResult carries the outcome of ReadAtomsAsync and ReadAppleMetadataAsync.
type AtomsResult struct {
	Atoms map[string]string
	OK    bool
}

// LocationResult carries the outcome of ReadLocationAsync.
type LocationResult struct {
	Lat, Lon float64
	OK       bool
}

// The Async variants run the same steps as their blocking counterparts on a
// new goroutine. File I/O is issued through a dedicated I/O goroutine, so the
// worker parks only at read and write boundaries. Each returned channel
// receives exactly one value and is then closed.

func (in *Injector) InjectAtomsAsync(path string, atoms map[string]string) <-chan bool {
	return in.injectAsync(path, func() (map[string]string, error) { return atoms, nil })
}

func (in *Injector) InjectMetadataAsync(path string, m *Metadata) <-chan bool {
	return in.injectAsync(path, func() (map[string]string, error) { return MetadataToAtoms(m), nil })
}

func (in *Injector) InjectLocationAsync(path string, lat, lon float64) <-chan bool {
	return in.injectAsync(path, func() (map[string]string, error) { return locationAtoms(lat, lon) })
}

func (in *Injector) injectAsync(path string, atoms func() (map[string]string, error)) <-chan bool {
	ch := make(chan bool, 1)
	go func() {
		defer close(ch)
		set, err := atoms()
		if err == nil {
			err = in.inject(openSuspending, path, set)
		}
		if err != nil {
			in.fail("inject", path, err)
		}
		ch <- err == nil
	}()
	return ch
}

func (in *Injector) ReadAtomsAsync(path string) <-chan AtomsResult {
	return in.readAsync(path, in.readAtoms)
}

func (in *Injector) ReadAppleMetadataAsync(path string) <-chan AtomsResult {
	return in.readAsync(path, in.readApple)
}

func (in *Injector) readAsync(path string, read func(opener, string) (map[string]string, error)) <-chan AtomsResult {
	ch := make(chan AtomsResult, 1)
	go func() {
		defer close(ch)
		m, err := read(openSuspending, path)
		if err != nil {
			in.fail("read", path, err)
			ch <- AtomsResult{}
			return
		}
		ch <- AtomsResult{Atoms: m, OK: true}
	}()
	return ch
}

func (in *Injector) ReadLocationAsync(path string) <-chan LocationResult {
	ch := make(chan LocationResult, 1)
	go func() {
		defer close(ch)
		lat, lon, err := in.readLocation(openSuspending, path)
		if err != nil {
			in.fail("read", path, err)
			ch <- LocationResult{}
			return
		}
		ch <- LocationResult{Lat: lat, Lon: lon, OK: true}
	}()
	return ch
}

func InjectAtomsAsync(path string, atoms map[string]string) <-chan bool {
	return Default.InjectAtomsAsync(path, atoms)
}

func InjectMetadataAsync(path string, m *Metadata) <-chan bool {
	return Default.InjectMetadataAsync(path, m)
}

func InjectLocationAsync(path string, lat, lon float64) <-chan bool {
	return Default.InjectLocationAsync(path, lat, lon)
}

func ReadAtomsAsync(path string) <-chan AtomsResult {
	return Default.ReadAtomsAsync(path)
}

func ReadAppleMetadataAsync(path string) <-chan AtomsResult {
	return Default.ReadAppleMetadataAsync(path)
}

func ReadLocationAsync(path string) <-chan LocationResult {
	return Default.ReadLocationAsync(path)
}
