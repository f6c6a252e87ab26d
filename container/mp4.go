package container

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// MP4 reads the AV1 samples of the first video track of a fragmented MP4.
type MP4 struct {
	info    Info
	packets []*Packet
}

var _ Source = (*MP4)(nil)

func NewMP4(r io.ReadSeeker) (*MP4, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the MP4: %w", err)
	}
	if !f.IsFragmented() {
		return nil, fmt.Errorf("%w: progressive MP4 is not supported, remux it into a fragmented one", ErrUnknownFormat)
	}
	if f.Init == nil || f.Init.Moov == nil {
		return nil, fmt.Errorf("no init segment")
	}

	var (
		trak      *mp4.TrakBox
		trex      *mp4.TrexBox
		timescale = uint32(1000)
	)
	for _, t := range f.Init.Moov.Traks {
		if t.Mdia != nil && t.Mdia.Hdlr != nil && t.Mdia.Hdlr.HandlerType == "vide" {
			trak = t
			break
		}
	}
	if trak == nil {
		return nil, fmt.Errorf("no video track found")
	}
	trackID := trak.Tkhd.TrackID
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		timescale = trak.Mdia.Mdhd.Timescale
	}
	if mvex := f.Init.Moov.Mvex; mvex != nil {
		for _, t := range mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	s := &MP4{
		info: Info{
			Format: "mp4",
			Width:  int(trak.Tkhd.Width >> 16),
			Height: int(trak.Tkhd.Height >> 16),
		},
	}
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return nil, fmt.Errorf("unable to get the samples: %w", err)
				}
				for _, sample := range samples {
					s.packets = append(s.packets, &Packet{
						Data:     sample.Data,
						PTS:      int64(sample.PresentationTime()) * 1_000_000 / int64(timescale),
						Keyframe: sample.IsSync(),
					})
				}
			}
		}
	}
	return s, nil
}

func (s *MP4) Info() Info {
	return s.info
}

func (s *MP4) NextPacket() (*Packet, error) {
	if len(s.packets) == 0 {
		return nil, io.EOF
	}
	pkt := s.packets[0]
	s.packets = s.packets[1:]
	return pkt, nil
}
