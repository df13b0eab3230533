package ctm

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// Importer loads containers into engine meshes.
type Importer struct {
	locator Locator
	codec   Codec
}

func NewImporter() *Importer {
	return &Importer{}
}

// SetModelLocator replaces the locator used by Load. A nil locator restores the
// default, which searches the working directory.
func (im *Importer) SetModelLocator(l Locator) *Importer {
	im.locator = l
	return im
}

// SetCodec replaces the decoder. A nil codec restores the default.
func (im *Importer) SetCodec(c Codec) *Importer {
	im.codec = c
	return im
}

func (im *Importer) modelLocator() Locator {
	if im.locator == nil {
		return NewDirLocator()
	}
	return im.locator
}

func (im *Importer) decoder() Codec {
	if im.codec == nil {
		return defaultCodec
	}
	return im.codec
}

// Load resolves name through the model locator and imports it.
func (im *Importer) Load(name string) (*EngineMesh, error) {
	src, err := im.modelLocator().Locate(name)
	if err != nil {
		var nf *ResourceNotFoundError
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, &ResourceNotFoundError{Name: name, Cause: err}
	}
	if src == nil {
		return nil, &ResourceNotFoundError{Name: name}
	}
	return im.LoadSource(src)
}

// LoadSource decodes src and builds an engine mesh named after the source.
func (im *Importer) LoadSource(src Source) (*EngineMesh, error) {
	if src == nil {
		return nil, &NullSourceError{}
	}
	name := src.Name()
	mesh, err := im.decode(src)
	if err != nil {
		Logger().Warn("ctm import failed", zap.String("name", name), zap.Error(err))
		return nil, &ImportError{Name: name, Cause: err}
	}
	em, err := Build(mesh, name)
	if err != nil {
		var ie *ImportError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &ImportError{Name: name, Cause: err}
	}
	Logger().Debug("ctm imported", zap.String("name", name), zap.String("id", em.ID.String()))
	return em, nil
}

func (im *Importer) decode(src Source) (*ContainerMesh, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, &ResourceNotFoundError{Name: src.Name(), Cause: err}
	}
	defer rc.Close()

	if dc, ok := im.decoder().(*DefaultCodec); ok && dc != nil {
		return NewReader(rc).Decode()
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, decodeError("read", err)
	}
	return im.decoder().Decode(data)
}
