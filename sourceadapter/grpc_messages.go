package sourceadapter

import (
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/wire"
)

type getObjectRequest struct {
	ID      model.ObjectID
	Version uint64
}

func (r *getObjectRequest) marshalWire() []byte {
	w := wire.NewWriter()
	w.WriteBytes(r.ID[:])
	w.WriteUvarint(r.Version)
	return w.Bytes()
}

func (r *getObjectRequest) unmarshalWire(data []byte) error {
	rd, err := wire.NewReader(data)
	if err != nil {
		return err
	}
	idBytes, err := rd.ReadBytes()
	if err != nil {
		return err
	}
	copy(r.ID[:], idBytes)
	if r.Version, err = rd.ReadUvarint(); err != nil {
		return err
	}
	return nil
}

type getObjectResponse struct {
	Object model.Object
}

func (r *getObjectResponse) marshalWire() []byte {
	return wire.EncodeObject(&r.Object)
}

func (r *getObjectResponse) unmarshalWire(data []byte) error {
	o, err := wire.DecodeObject(data)
	if err != nil {
		return err
	}
	r.Object = *o
	return nil
}

type getPackageModulesRequest struct {
	StorageID model.PackageID
}

func (r *getPackageModulesRequest) marshalWire() []byte {
	w := wire.NewWriter()
	w.WriteBytes(r.StorageID[:])
	return w.Bytes()
}

func (r *getPackageModulesRequest) unmarshalWire(data []byte) error {
	rd, err := wire.NewReader(data)
	if err != nil {
		return err
	}
	idBytes, err := rd.ReadBytes()
	if err != nil {
		return err
	}
	copy(r.StorageID[:], idBytes)
	return nil
}

type getPackageModulesResponse struct {
	Package model.Package
}

func (r *getPackageModulesResponse) marshalWire() []byte {
	return wire.EncodePackage(&r.Package)
}

func (r *getPackageModulesResponse) unmarshalWire(data []byte) error {
	p, err := wire.DecodePackage(data)
	if err != nil {
		return err
	}
	r.Package = *p
	return nil
}

type getTransactionRequest struct {
	Digest model.Digest
}

func (r *getTransactionRequest) marshalWire() []byte {
	w := wire.NewWriter()
	w.WriteBytes(r.Digest[:])
	return w.Bytes()
}

func (r *getTransactionRequest) unmarshalWire(data []byte) error {
	rd, err := wire.NewReader(data)
	if err != nil {
		return err
	}
	digestBytes, err := rd.ReadBytes()
	if err != nil {
		return err
	}
	copy(r.Digest[:], digestBytes)
	return nil
}

type getTransactionResponse struct {
	Transaction model.Transaction
	Effects     model.Effects
}

func (r *getTransactionResponse) marshalWire() []byte {
	w := wire.NewWriter()
	w.WriteBytes(wire.EncodeTransaction(&r.Transaction))
	w.WriteBytes(wire.EncodeEffects(&r.Effects))
	return w.Bytes()
}

func (r *getTransactionResponse) unmarshalWire(data []byte) error {
	rd, err := wire.NewReader(data)
	if err != nil {
		return err
	}
	txBytes, err := rd.ReadBytes()
	if err != nil {
		return err
	}
	tx, err := wire.DecodeTransaction(txBytes)
	if err != nil {
		return err
	}
	r.Transaction = *tx

	effectsBytes, err := rd.ReadBytes()
	if err != nil {
		return err
	}
	effects, err := wire.DecodeEffects(effectsBytes)
	if err != nil {
		return err
	}
	r.Effects = *effects
	return nil
}
