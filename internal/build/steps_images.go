package build

import (
	"context"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// stageImages copies registered images to the images destination.
func stageImages(ctx context.Context, st *State) error {
	imgs := st.Index.Images().All()
	if len(imgs) == 0 {
		return skip("no images")
	}
	ie := &itemErrors{stage: StageImages}
	written := 0
	for _, img := range imgs {
		if err := ctx.Err(); err != nil {
			return NewCanceledStageError(StageImages, err)
		}
		info, err := os.Stat(img.Path)
		if err == nil {
			err = copyFile(img.Path, st.out(img.DestPath), info.ModTime())
		}
		if err != nil {
			st.Logger.Warn("Image not copied",
				logfields.Path(img.Path),
				logfields.Error(err))
			ie.add(err)
			continue
		}
		st.claim(img.DestPath, nil)
		written++
	}
	st.items(StageImages, written, len(ie.errs))
	return ie.result()
}
