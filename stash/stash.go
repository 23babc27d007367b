// Package stash hides messages in PNG files and recovers them.
//
// Each operation reads a file from a store.Store,
// works on it as a pngmsg.PNG,
// and (for operations that change it) writes it back with store.Store.Update,
// so concurrent changes to the same file do not clobber one another.
package stash

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/pngmsg"
	"github.com/bobg/pngmsg/split"
	"github.com/bobg/pngmsg/store"
	"github.com/bobg/pngmsg/transform"
)

// Options control Encode and Decode.
// The zero value (or a nil pointer) means
// no transformation,
// no splitting,
// and in-place modification.
type Options struct {
	// Transformer transforms messages on their way into (and out of) files.
	// Decode must use the same Transformer as Encode.
	Transformer transform.Transformer

	// Split causes Encode to divide a message among several chunks with the same tag,
	// and Decode to reassemble all chunks with the tag.
	Split bool

	// SplitOptions are passed to split.Split.
	SplitOptions []split.Option

	// Output, if set, names the file where Encode stores its result,
	// leaving the input file unchanged.
	Output string

	// AllowNonconforming lets Encode use a tag whose reserved bit is wrong.
	AllowNonconforming bool
}

func (o *Options) transformer() transform.Transformer {
	if o == nil || o.Transformer == nil {
		return transform.Identity{}
	}
	return o.Transformer
}

// ErrNonconforming is the error for a tag that is well-formed but not valid
// (its reserved bit is set).
var ErrNonconforming = errors.New("tag does not conform to the PNG format")

// ErrTagInUse is the error for a split Encode into a file that already has chunks with the tag.
// Decode would join the old chunks with the new ones.
var ErrTagInUse = errors.New("tag already in use")

// Encode hides msg in the named file
// as the data of one or more new chunks with the given tag,
// appended after the existing chunks.
// It returns the new chunks.
//
// With opts.Split the tag must not already be present in the file
// (the error is ErrTagInUse),
// since Decode reassembles every chunk with the tag.
func Encode(ctx context.Context, s store.Store, name, tag string, msg []byte, opts *Options) ([]*pngmsg.Chunk, error) {
	t, err := pngmsg.TagFromString(tag)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing tag %s", tag)
	}
	if !t.IsValid() && (opts == nil || !opts.AllowNonconforming) {
		return nil, errors.Wrapf(ErrNonconforming, "tag %s", tag)
	}
	if t.IsCritical() {
		log.Printf("Warning: tag %s is critical; decoders that do not recognize it will reject %s", tag, name)
	}

	data, err := opts.transformer().In(ctx, msg)
	if err != nil {
		return nil, errors.Wrap(err, "transforming message")
	}

	pieces := [][]byte{data}
	if opts != nil && opts.Split {
		pieces, err = split.Split(data, opts.SplitOptions...)
		if err != nil {
			return nil, err
		}
	} else if len(data) > pngmsg.MaxDataLen {
		return nil, fmt.Errorf("message of %d bytes is too long for one chunk; try splitting", len(data))
	}

	chunks := make([]*pngmsg.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, pngmsg.NewChunk(t, piece))
	}

	add := func(old []byte) ([]byte, error) {
		p, err := pngmsg.Parse(old)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", name)
		}
		if opts != nil && opts.Split && p.ChunkByTag(tag) != nil {
			return nil, errors.Wrapf(ErrTagInUse, "split message %s in %s", tag, name)
		}
		for _, c := range chunks {
			p.AppendChunk(c)
		}
		return p.Bytes(), nil
	}

	if opts == nil || opts.Output == "" || opts.Output == name {
		return chunks, s.Update(ctx, name, add)
	}

	old, err := s.Get(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", name)
	}
	out, err := add(old)
	if err != nil {
		return nil, err
	}
	return chunks, errors.Wrapf(s.Put(ctx, opts.Output, out), "storing %s", opts.Output)
}

// Decode recovers the message hidden in the named file under the given tag.
// Without opts.Split it is the data of the first chunk with that tag;
// with it, the data of all such chunks joined together.
// The error is pngmsg.ErrNotFound if there is no chunk with the tag.
func Decode(ctx context.Context, g store.Getter, name, tag string, opts *Options) ([]byte, error) {
	if _, err := pngmsg.TagFromString(tag); err != nil {
		return nil, errors.Wrapf(err, "parsing tag %s", tag)
	}

	b, err := g.Get(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", name)
	}
	p, err := pngmsg.Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", name)
	}

	var data []byte
	if opts != nil && opts.Split {
		chunks := p.ChunksByTag(tag)
		if len(chunks) == 0 {
			return nil, errors.Wrapf(pngmsg.ErrNotFound, "chunk %s in %s", tag, name)
		}
		pieces := make([][]byte, 0, len(chunks))
		for _, c := range chunks {
			pieces = append(pieces, c.Data())
		}
		data = split.Join(pieces)
	} else {
		c := p.ChunkByTag(tag)
		if c == nil {
			return nil, errors.Wrapf(pngmsg.ErrNotFound, "chunk %s in %s", tag, name)
		}
		data = c.Data()
	}

	msg, err := opts.transformer().Out(ctx, data)
	return msg, errors.Wrap(err, "untransforming message")
}

// DecodeString is Decode for messages that are text.
// The error is pngmsg.ErrInvalidUTF8 if the message is not.
func DecodeString(ctx context.Context, g store.Getter, name, tag string, opts *Options) (string, error) {
	msg, err := Decode(ctx, g, name, tag, opts)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(msg) {
		return "", errors.Wrapf(pngmsg.ErrInvalidUTF8, "message %s in %s", tag, name)
	}
	return string(msg), nil
}

// Remove removes the first chunk with the given tag from the named file,
// or all of them if all is true,
// and returns the removed chunks.
// The error is pngmsg.ErrNotFound,
// and the file is unchanged,
// if there is no chunk with the tag.
func Remove(ctx context.Context, s store.Store, name, tag string, all bool) ([]*pngmsg.Chunk, error) {
	if _, err := pngmsg.TagFromString(tag); err != nil {
		return nil, errors.Wrapf(err, "parsing tag %s", tag)
	}

	var removed []*pngmsg.Chunk
	err := s.Update(ctx, name, func(old []byte) ([]byte, error) {
		removed = nil

		p, err := pngmsg.Parse(old)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", name)
		}
		for {
			c, err := p.RemoveChunk(tag)
			if errors.Is(err, pngmsg.ErrNotFound) && len(removed) > 0 {
				break
			}
			if err != nil {
				return nil, errors.Wrapf(err, "in %s", name)
			}
			removed = append(removed, c)
			if !all {
				break
			}
		}
		return p.Bytes(), nil
	})
	return removed, err
}

// ChunkInfo describes one chunk of a file.
type ChunkInfo struct {
	Index      int    `json:"index"`
	Tag        string `json:"tag"`
	Length     uint32 `json:"length"`
	CRC        uint32 `json:"crc"`
	Critical   bool   `json:"critical"`
	Public     bool   `json:"public"`
	SafeToCopy bool   `json:"safe_to_copy"`
	Valid      bool   `json:"valid"`
}

func info(i int, c *pngmsg.Chunk) ChunkInfo {
	t := c.Tag()
	return ChunkInfo{
		Index:      i,
		Tag:        t.String(),
		Length:     c.Length(),
		CRC:        c.CRC(),
		Critical:   t.IsCritical(),
		Public:     t.IsPublic(),
		SafeToCopy: t.IsSafeToCopy(),
		Valid:      t.IsValid(),
	}
}

func (ci ChunkInfo) String() string {
	return fmt.Sprintf("%3d %s %10d %08x critical=%v public=%v safe-to-copy=%v", ci.Index, ci.Tag, ci.Length, ci.CRC, ci.Critical, ci.Public, ci.SafeToCopy)
}

// Chunks describes the chunks of the named file, in order.
func Chunks(ctx context.Context, g store.Getter, name string) ([]ChunkInfo, error) {
	b, err := g.Get(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", name)
	}
	var result []ChunkInfo
	err = pngmsg.ForEachChunk(b, func(c *pngmsg.Chunk) error {
		result = append(result, info(len(result), c))
		return nil
	})
	return result, errors.Wrapf(err, "parsing %s", name)
}

// PrintStream writes a line describing each chunk of the PNG stream r to w,
// reading one chunk at a time.
func PrintStream(r io.Reader, w io.Writer) error {
	pr, err := pngmsg.NewReader(r)
	if err != nil {
		return err
	}
	for i := 0; ; i++ {
		c, err := pr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintln(w, info(i, c)); err != nil {
			return err
		}
	}
}

// Print writes a line describing each chunk of the named file to w.
func Print(ctx context.Context, g store.Getter, name string, w io.Writer) error {
	b, err := g.Get(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "getting %s", name)
	}
	return errors.Wrapf(PrintStream(bytes.NewReader(b), w), "printing %s", name)
}

// PrintAll is Print for several files,
// each preceded by a header line naming it.
// Files are read and parsed concurrently,
// but the output is in the order of names.
func PrintAll(ctx context.Context, g store.Getter, names []string, w io.Writer) error {
	var (
		eg, ctx2 = errgroup.WithContext(ctx)
		bufs     = make([]bytes.Buffer, len(names))
	)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			fmt.Fprintf(&bufs[i], "==> %s <==\n", name)
			return Print(ctx2, g, name, &bufs[i])
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for i := range bufs {
		if _, err := bufs[i].WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}
