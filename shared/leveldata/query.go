package leveldata

// ObjectLayer returns the objects of the single object layer called name.
func (d *Document) ObjectLayer(name string) ([]Object, error) {
	var found *Layer
	count := 0
	for i := range d.Layers {
		l := &d.Layers[i]
		if l.Kind == KindObject && l.Name == name {
			found = l
			count++
		}
	}
	if count != 1 {
		return nil, &LayerNotFoundError{Name: name, Count: count}
	}
	return found.Objects, nil
}

// FindZone searches the zone layer for objects called name. With required set
// exactly one match is accepted; otherwise zero matches yields nil, nil.
// More than one match is always an error.
func (d *Document) FindZone(layer, name string, required bool) (*Object, error) {
	objects, err := d.ObjectLayer(layer)
	if err != nil {
		return nil, err
	}

	var match *Object
	matches := 0
	for i := range objects {
		if objects[i].Name == name {
			match = &objects[i]
			matches++
		}
	}

	switch {
	case matches == 1:
		o := *match
		return &o, nil
	case matches == 0 && !required:
		return nil, nil
	default:
		return nil, &ZoneLookupError{Name: name, Matches: matches}
	}
}
