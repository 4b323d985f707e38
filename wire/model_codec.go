package wire

import (
	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
)

// This file implements the self-describing object/package encoding and
// the tagged-union transaction/command/argument encoding. Every
// Encode/Decode pair here is the canonical format: what histcache writes
// to its cold tier, what bundle writes to an export file, and what
// sourceadapter's RPC transport marshals over the wire — one format,
// three call sites. The codec is total for objects and packages;
// transactions are closed tagged unions that reject unknown
// discriminants.

func writeAddress(w *Writer, a model.Address) { w.WriteBytes(a[:]) }

func readAddress(r *Reader) (model.Address, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return model.Address{}, err
	}
	var a model.Address
	if len(b) != model.AddressLength {
		return a, errtax.Codec(r.pos(), "address length mismatch")
	}
	copy(a[:], b)
	return a, nil
}

func writeDigest(w *Writer, d model.Digest) { w.WriteBytes(d[:]) }

func readDigest(r *Reader) (model.Digest, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return model.Digest{}, err
	}
	var d model.Digest
	if len(b) != model.AddressLength {
		return d, errtax.Codec(r.pos(), "digest length mismatch")
	}
	copy(d[:], b)
	return d, nil
}

func writeOwner(w *Writer, o model.Owner) {
	w.WriteUvarint(uint64(o.Kind))
	writeAddress(w, o.Address)
	w.WriteUvarint(o.InitialSharedVersion)
	writeAddress(w, o.Parent)
}

func readOwner(r *Reader) (model.Owner, error) {
	var o model.Owner
	kind, err := r.ReadUvarint()
	if err != nil {
		return o, err
	}
	o.Kind = model.OwnerKind(kind)
	if o.Address, err = readAddress(r); err != nil {
		return o, err
	}
	if o.InitialSharedVersion, err = r.ReadUvarint(); err != nil {
		return o, err
	}
	if o.Parent, err = readAddress(r); err != nil {
		return o, err
	}
	return o, nil
}

// EncodeObject serializes an Object to the canonical wire format.
func EncodeObject(o *model.Object) []byte {
	w := NewWriter()
	writeAddress(w, o.ID)
	w.WriteUvarint(o.Version)
	writeDigest(w, o.Digest)
	writeOwner(w, o.Owner)
	w.WriteString(string(o.Type))
	w.WriteBytes(o.Contents)
	writeDigest(w, o.PreviousTx)
	return w.Bytes()
}

// DecodeObject parses bytes produced by EncodeObject.
func DecodeObject(data []byte) (*model.Object, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	o := &model.Object{}
	if o.ID, err = readAddress(r); err != nil {
		return nil, err
	}
	if o.Version, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if o.Digest, err = readDigest(r); err != nil {
		return nil, err
	}
	if o.Owner, err = readOwner(r); err != nil {
		return nil, err
	}
	typ, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	o.Type = model.TypeTag(typ)
	if o.Contents, err = r.ReadBytes(); err != nil {
		return nil, err
	}
	if o.PreviousTx, err = readDigest(r); err != nil {
		return nil, err
	}
	return o, nil
}

// EncodePackage serializes a Package to the canonical wire format.
func EncodePackage(p *model.Package) []byte {
	w := NewWriter()
	writeAddress(w, p.OriginalID)
	writeAddress(w, p.StorageID)
	w.WriteUvarint(p.Version)

	names := p.ModuleNames()
	w.WriteUvarint(uint64(len(names)))
	for _, name := range names {
		w.WriteString(name)
		w.WriteBytes(p.Modules[name])
	}

	w.WriteUvarint(uint64(len(p.Linkage)))
	linkageKeys := make([]model.PackageID, 0, len(p.Linkage))
	for k := range p.Linkage {
		linkageKeys = append(linkageKeys, k)
	}
	sortAddresses(linkageKeys)
	for _, k := range linkageKeys {
		writeAddress(w, k)
		entry := p.Linkage[k]
		writeAddress(w, entry.StorageID)
		w.WriteUvarint(entry.Version)
	}

	w.WriteUvarint(uint64(len(p.TypeOriginTable)))
	typeKeys := make([]string, 0, len(p.TypeOriginTable))
	for k := range p.TypeOriginTable {
		typeKeys = append(typeKeys, k)
	}
	sortStringsLocal(typeKeys)
	for _, k := range typeKeys {
		w.WriteString(k)
		writeAddress(w, p.TypeOriginTable[k])
	}
	return w.Bytes()
}

// DecodePackage parses bytes produced by EncodePackage.
func DecodePackage(data []byte) (*model.Package, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	p := &model.Package{
		Modules:         map[string][]byte{},
		Linkage:         map[model.PackageID]model.LinkageEntry{},
		TypeOriginTable: map[string]model.PackageID{},
	}
	if p.OriginalID, err = readAddress(r); err != nil {
		return nil, err
	}
	if p.StorageID, err = readAddress(r); err != nil {
		return nil, err
	}
	if p.Version, err = r.ReadUvarint(); err != nil {
		return nil, err
	}

	numModules, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numModules; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		code, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		p.Modules[name] = code
	}

	numLinkage, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numLinkage; i++ {
		key, err := readAddress(r)
		if err != nil {
			return nil, err
		}
		storageID, err := readAddress(r)
		if err != nil {
			return nil, err
		}
		version, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		p.Linkage[key] = model.LinkageEntry{StorageID: storageID, Version: version}
	}

	numTypes, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numTypes; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		origin, err := readAddress(r)
		if err != nil {
			return nil, err
		}
		p.TypeOriginTable[key] = origin
	}
	return p, nil
}

func writeArgument(w *Writer, a model.Argument) {
	w.WriteUvarint(uint64(a.Kind))
	w.WriteUvarint(uint64(a.InputIndex))
	w.WriteUvarint(uint64(a.CommandIdx))
	w.WriteUvarint(uint64(a.ResultIndex))
}

func readArgument(r *Reader) (model.Argument, error) {
	var a model.Argument
	kind, err := r.ReadUvarint()
	if err != nil {
		return a, err
	}
	a.Kind = model.ArgumentKind(kind)
	in, err := r.ReadUvarint()
	if err != nil {
		return a, err
	}
	a.InputIndex = int(in)
	cmd, err := r.ReadUvarint()
	if err != nil {
		return a, err
	}
	a.CommandIdx = int(cmd)
	res, err := r.ReadUvarint()
	if err != nil {
		return a, err
	}
	a.ResultIndex = int(res)
	return a, nil
}

func writeArguments(w *Writer, args []model.Argument) {
	w.WriteUvarint(uint64(len(args)))
	for _, a := range args {
		writeArgument(w, a)
	}
}

func readArguments(r *Reader) ([]model.Argument, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	args := make([]model.Argument, 0, n)
	for i := uint64(0); i < n; i++ {
		a, err := readArgument(r)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, nil
}

func writeInput(w *Writer, in model.Input) {
	w.WriteUvarint(uint64(in.Kind))
	w.WriteBytes(in.PureBytes)
	writeAddress(w, in.ObjectID)
	w.WriteUvarint(in.InitialSharedVersion)
	w.WriteBool(in.Mutable)
	w.WriteUvarint(in.Version)
	writeDigest(w, in.Digest)
}

func readInput(r *Reader) (model.Input, error) {
	var in model.Input
	kind, err := r.ReadUvarint()
	if err != nil {
		return in, err
	}
	in.Kind = model.InputKind(kind)
	if in.PureBytes, err = r.ReadBytes(); err != nil {
		return in, err
	}
	if in.ObjectID, err = readAddress(r); err != nil {
		return in, err
	}
	if in.InitialSharedVersion, err = r.ReadUvarint(); err != nil {
		return in, err
	}
	if in.Mutable, err = r.ReadBool(); err != nil {
		return in, err
	}
	if in.Version, err = r.ReadUvarint(); err != nil {
		return in, err
	}
	if in.Digest, err = readDigest(r); err != nil {
		return in, err
	}
	return in, nil
}

func writeInputs(w *Writer, ins []model.Input) {
	w.WriteUvarint(uint64(len(ins)))
	for _, in := range ins {
		writeInput(w, in)
	}
}

func readInputs(r *Reader) ([]model.Input, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	ins := make([]model.Input, 0, n)
	for i := uint64(0); i < n; i++ {
		in, err := readInput(r)
		if err != nil {
			return nil, err
		}
		ins = append(ins, in)
	}
	return ins, nil
}

func writeTypeTags(w *Writer, tags []model.TypeTag) {
	w.WriteUvarint(uint64(len(tags)))
	for _, t := range tags {
		w.WriteString(string(t))
	}
}

func readTypeTags(r *Reader) ([]model.TypeTag, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	tags := make([]model.TypeTag, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		tags = append(tags, model.TypeTag(s))
	}
	return tags, nil
}

func writeCommand(w *Writer, c model.Command) {
	w.WriteUvarint(uint64(c.Kind))
	switch c.Kind {
	case model.CmdMoveCall:
		writeAddress(w, c.Target.Package)
		w.WriteString(c.Target.Module)
		w.WriteString(c.Target.Function)
		writeTypeTags(w, c.Target.TypeArgs)
		writeArguments(w, c.Args)
	case model.CmdTransferObjects:
		writeArguments(w, c.Objects)
		writeArgument(w, c.Recipient)
	case model.CmdSplitCoins:
		writeArgument(w, c.Coin)
		writeArguments(w, c.Amounts)
	case model.CmdMergeCoins:
		writeArgument(w, c.Destination)
		writeArguments(w, c.Sources)
	case model.CmdMakeMoveVec:
		w.WriteString(string(c.ElementType))
		writeArguments(w, c.Elements)
	case model.CmdPublish, model.CmdUpgrade:
		w.WriteUvarint(uint64(len(c.Modules)))
		for _, m := range c.Modules {
			w.WriteBytes(m)
		}
		w.WriteUvarint(uint64(len(c.Dependencies)))
		for _, d := range c.Dependencies {
			writeAddress(w, d)
		}
		writeArgument(w, c.UpgradeTicket)
	}
}

func readCommand(r *Reader) (model.Command, error) {
	var c model.Command
	kind, err := r.ReadUvarint()
	if err != nil {
		return c, err
	}
	c.Kind = model.CommandKind(kind)
	switch c.Kind {
	case model.CmdMoveCall:
		if c.Target.Package, err = readAddress(r); err != nil {
			return c, err
		}
		if c.Target.Module, err = r.ReadString(); err != nil {
			return c, err
		}
		if c.Target.Function, err = r.ReadString(); err != nil {
			return c, err
		}
		if c.Target.TypeArgs, err = readTypeTags(r); err != nil {
			return c, err
		}
		if c.Args, err = readArguments(r); err != nil {
			return c, err
		}
	case model.CmdTransferObjects:
		if c.Objects, err = readArguments(r); err != nil {
			return c, err
		}
		if c.Recipient, err = readArgument(r); err != nil {
			return c, err
		}
	case model.CmdSplitCoins:
		if c.Coin, err = readArgument(r); err != nil {
			return c, err
		}
		if c.Amounts, err = readArguments(r); err != nil {
			return c, err
		}
	case model.CmdMergeCoins:
		if c.Destination, err = readArgument(r); err != nil {
			return c, err
		}
		if c.Sources, err = readArguments(r); err != nil {
			return c, err
		}
	case model.CmdMakeMoveVec:
		elemType, err := r.ReadString()
		if err != nil {
			return c, err
		}
		c.ElementType = model.TypeTag(elemType)
		if c.Elements, err = readArguments(r); err != nil {
			return c, err
		}
	case model.CmdPublish, model.CmdUpgrade:
		numModules, err := r.ReadUvarint()
		if err != nil {
			return c, err
		}
		if numModules > 0 {
			c.Modules = make([][]byte, 0, numModules)
		}
		for i := uint64(0); i < numModules; i++ {
			m, err := r.ReadBytes()
			if err != nil {
				return c, err
			}
			c.Modules = append(c.Modules, m)
		}
		numDeps, err := r.ReadUvarint()
		if err != nil {
			return c, err
		}
		if numDeps > 0 {
			c.Dependencies = make([]model.PackageID, 0, numDeps)
		}
		for i := uint64(0); i < numDeps; i++ {
			d, err := readAddress(r)
			if err != nil {
				return c, err
			}
			c.Dependencies = append(c.Dependencies, d)
		}
		if c.UpgradeTicket, err = readArgument(r); err != nil {
			return c, err
		}
	default:
		return c, errtax.Codec(r.pos(), "unknown command discriminant")
	}
	return c, nil
}

// EncodeTransaction serializes a Transaction as a tagged union per command.
func EncodeTransaction(tx *model.Transaction) []byte {
	w := NewWriter()
	writeDigest(w, tx.Digest)
	writeAddress(w, tx.Sender)
	w.WriteUvarint(tx.GasPrice)
	w.WriteUvarint(tx.GasBudget)
	writeInputs(w, tx.GasPayment)
	writeInputs(w, tx.Inputs)
	w.WriteUvarint(uint64(len(tx.Commands)))
	for _, c := range tx.Commands {
		writeCommand(w, c)
	}
	w.WriteUvarint(tx.Checkpoint)
	w.WriteUvarint(tx.TimestampMs)
	return w.Bytes()
}

// DecodeTransaction parses bytes produced by EncodeTransaction.
func DecodeTransaction(data []byte) (*model.Transaction, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	tx := &model.Transaction{}
	if tx.Digest, err = readDigest(r); err != nil {
		return nil, err
	}
	if tx.Sender, err = readAddress(r); err != nil {
		return nil, err
	}
	if tx.GasPrice, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if tx.GasBudget, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if tx.GasPayment, err = readInputs(r); err != nil {
		return nil, err
	}
	if tx.Inputs, err = readInputs(r); err != nil {
		return nil, err
	}
	numCommands, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if numCommands > 0 {
		tx.Commands = make([]model.Command, 0, numCommands)
	}
	for i := uint64(0); i < numCommands; i++ {
		c, err := readCommand(r)
		if err != nil {
			return nil, err
		}
		tx.Commands = append(tx.Commands, c)
	}
	if tx.Checkpoint, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if tx.TimestampMs, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	return tx, nil
}

func writeObjectRefs(w *Writer, refs []model.ObjectRef) {
	w.WriteUvarint(uint64(len(refs)))
	for _, ref := range refs {
		writeAddress(w, ref.ID)
		w.WriteUvarint(ref.Version)
		writeDigest(w, ref.Digest)
	}
}

func readObjectRefs(r *Reader) ([]model.ObjectRef, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	refs := make([]model.ObjectRef, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := readAddress(r)
		if err != nil {
			return nil, err
		}
		version, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		digest, err := readDigest(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, model.ObjectRef{ID: id, Version: version, Digest: digest})
	}
	return refs, nil
}

// EncodeEffects serializes an Effects value to the canonical wire format.
func EncodeEffects(e *model.Effects) []byte {
	w := NewWriter()
	w.WriteUvarint(uint64(e.Status.Kind))
	w.WriteUvarint(e.Status.Code)
	w.WriteString(e.Status.Location)
	w.WriteString(e.Status.Reason)

	w.WriteUvarint(e.GasUsed.ComputationCost)
	w.WriteUvarint(e.GasUsed.StorageCost)
	w.WriteUvarint(e.GasUsed.StorageRebate)
	w.WriteUvarint(e.GasUsed.NonRefundable)

	writeObjectRefs(w, e.Created)
	writeObjectRefs(w, e.Mutated)
	writeObjectRefs(w, e.Deleted)
	writeObjectRefs(w, e.Wrapped)
	writeObjectRefs(w, e.Unwrapped)

	w.WriteUvarint(uint64(len(e.SharedObjectInputVersions)))
	sharedKeys := make([]model.ObjectID, 0, len(e.SharedObjectInputVersions))
	for k := range e.SharedObjectInputVersions {
		sharedKeys = append(sharedKeys, k)
	}
	sortAddresses(sharedKeys)
	for _, k := range sharedKeys {
		writeAddress(w, k)
		w.WriteUvarint(e.SharedObjectInputVersions[k])
	}

	writeObjectRefs(w, e.UnchangedLoadedRuntimeObjects)

	w.WriteUvarint(uint64(len(e.Dependencies)))
	for _, d := range e.Dependencies {
		writeDigest(w, d)
	}
	return w.Bytes()
}

// DecodeEffects parses bytes produced by EncodeEffects.
func DecodeEffects(data []byte) (*model.Effects, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	e := &model.Effects{SharedObjectInputVersions: map[model.ObjectID]uint64{}}

	statusKind, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	e.Status.Kind = model.StatusKind(statusKind)
	if e.Status.Code, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if e.Status.Location, err = r.ReadString(); err != nil {
		return nil, err
	}
	if e.Status.Reason, err = r.ReadString(); err != nil {
		return nil, err
	}

	if e.GasUsed.ComputationCost, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if e.GasUsed.StorageCost, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if e.GasUsed.StorageRebate, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if e.GasUsed.NonRefundable, err = r.ReadUvarint(); err != nil {
		return nil, err
	}

	if e.Created, err = readObjectRefs(r); err != nil {
		return nil, err
	}
	if e.Mutated, err = readObjectRefs(r); err != nil {
		return nil, err
	}
	if e.Deleted, err = readObjectRefs(r); err != nil {
		return nil, err
	}
	if e.Wrapped, err = readObjectRefs(r); err != nil {
		return nil, err
	}
	if e.Unwrapped, err = readObjectRefs(r); err != nil {
		return nil, err
	}

	numShared, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numShared; i++ {
		id, err := readAddress(r)
		if err != nil {
			return nil, err
		}
		version, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		e.SharedObjectInputVersions[id] = version
	}

	if e.UnchangedLoadedRuntimeObjects, err = readObjectRefs(r); err != nil {
		return nil, err
	}

	numDeps, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if numDeps > 0 {
		e.Dependencies = make([]model.Digest, 0, numDeps)
	}
	for i := uint64(0); i < numDeps; i++ {
		d, err := readDigest(r)
		if err != nil {
			return nil, err
		}
		e.Dependencies = append(e.Dependencies, d)
	}
	return e, nil
}
