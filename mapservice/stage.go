package mapservice

// Stage is a step of the load pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageDocument
	StageImages
	StageAtlas
	StageComposite
	StageBake
	StageBodies
	StageLoaded
	StageFailed
	StageClosed
)

var stageNames = map[Stage]string{
	StageIdle:      "idle",
	StageDocument:  "document",
	StageImages:    "images",
	StageAtlas:     "atlas",
	StageComposite: "composite",
	StageBake:      "bake",
	StageBodies:    "bodies",
	StageLoaded:    "loaded",
	StageFailed:    "failed",
	StageClosed:    "closed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// pipeline lists the working stages in execution order.
var pipeline = []Stage{
	StageDocument,
	StageImages,
	StageAtlas,
	StageComposite,
	StageBake,
	StageBodies,
}
