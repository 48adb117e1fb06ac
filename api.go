package mp4meta

// InjectAtomsErr writes every non-empty atom of the set into the file at path,
// as udta text atoms and, where a mapping exists, Apple mdta entries. An atom
// with a tag already present replaces it.
func (in *Injector) InjectAtomsErr(path string, atoms map[string]string) error {
	if err := in.inject(openBlocking, path, atoms); err != nil {
		return in.fail("inject", path, err)
	}
	return nil
}

// InjectAtoms is InjectAtomsErr reporting only success. Failures are logged.
func (in *Injector) InjectAtoms(path string, atoms map[string]string) bool {
	return in.InjectAtomsErr(path, atoms) == nil
}

// InjectMetadataErr maps m to an atom set with MetadataToAtoms and injects it.
func (in *Injector) InjectMetadataErr(path string, m *Metadata) error {
	if err := in.inject(openBlocking, path, MetadataToAtoms(m)); err != nil {
		return in.fail("inject", path, err)
	}
	return nil
}

// InjectMetadata is InjectMetadataErr reporting only success.
func (in *Injector) InjectMetadata(path string, m *Metadata) bool {
	return in.InjectMetadataErr(path, m) == nil
}

// InjectLocationErr writes a single ISO 6709 location atom. Both coordinates
// exactly zero are rejected as "no fix".
func (in *Injector) InjectLocationErr(path string, lat, lon float64) error {
	atoms, err := locationAtoms(lat, lon)
	if err == nil {
		err = in.inject(openBlocking, path, atoms)
	}
	if err != nil {
		return in.fail("inject", path, err)
	}
	return nil
}

// InjectLocation is InjectLocationErr reporting only success.
func (in *Injector) InjectLocation(path string, lat, lon float64) bool {
	return in.InjectLocationErr(path, lat, lon) == nil
}

// ReadAtomsErr returns the udta text atoms of the file. A file with a moov
// but no udta yields an empty map.
func (in *Injector) ReadAtomsErr(path string) (map[string]string, error) {
	atoms, err := in.readAtoms(openBlocking, path)
	if err != nil {
		return nil, in.fail("read", path, err)
	}
	return atoms, nil
}

// ReadAtoms is ReadAtomsErr with the error collapsed into ok.
func (in *Injector) ReadAtoms(path string) (map[string]string, bool) {
	atoms, err := in.ReadAtomsErr(path)
	return atoms, err == nil
}

// ReadLocationErr parses the location atom of the file, falling back to the
// Apple mdta location key.
func (in *Injector) ReadLocationErr(path string) (lat, lon float64, err error) {
	lat, lon, err = in.readLocation(openBlocking, path)
	if err != nil {
		return 0, 0, in.fail("read", path, err)
	}
	return lat, lon, nil
}

// ReadLocation is ReadLocationErr with the error collapsed into ok.
func (in *Injector) ReadLocation(path string) (lat, lon float64, ok bool) {
	lat, lon, err := in.ReadLocationErr(path)
	return lat, lon, err == nil
}

// ReadAppleMetadataErr returns the mdta key/value pairs of moov/meta.
func (in *Injector) ReadAppleMetadataErr(path string) (map[string]string, error) {
	m, err := in.readApple(openBlocking, path)
	if err != nil {
		return nil, in.fail("read", path, err)
	}
	return m, nil
}

// ReadAppleMetadata is ReadAppleMetadataErr with the error collapsed into ok.
func (in *Injector) ReadAppleMetadata(path string) (map[string]string, bool) {
	m, err := in.ReadAppleMetadataErr(path)
	return m, err == nil
}

// Package-level shortcuts over Default.

func InjectAtoms(path string, atoms map[string]string) bool {
	return Default.InjectAtoms(path, atoms)
}

func InjectMetadata(path string, m *Metadata) bool {
	return Default.InjectMetadata(path, m)
}

func InjectLocation(path string, lat, lon float64) bool {
	return Default.InjectLocation(path, lat, lon)
}

func ReadAtoms(path string) (map[string]string, bool) {
	return Default.ReadAtoms(path)
}

func ReadLocation(path string) (lat, lon float64, ok bool) {
	return Default.ReadLocation(path)
}

func ReadAppleMetadata(path string) (map[string]string, bool) {
	return Default.ReadAppleMetadata(path)
}
