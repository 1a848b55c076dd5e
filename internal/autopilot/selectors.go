package autopilot

// Platform selectors.
const (
	SelEmailInput       = `input[type="email"]`
	SelPasswordInput    = `input[type="password"]`
	SelSubmitButton     = `input[type="submit"]`
	SelDisplayName      = "#displayName"
	SelHeading          = `[role="heading"]`
	SelDuplicateSession = ".duplicate-session-main-header"
	SelContinueButton   = `input[value="Continue"]`
	SelNextActivity     = `a[title="Next Activity"]`

	SelFootnavRight  = ".footnav.goRight:not(.disabled)"
	SelActivityTitle = "#activity-title"
	SelStageFrame    = "#stageFrame"
	SelFrameProgress = "#frameProgress"
	SelFrameRight    = ".FrameRight"
	SelPreviewFrame  = "#iFramePreview"
	SelFileInput     = `input[type="file"]`

	SelVideoPause = "li.pause"
	SelVideoPlay  = "li.play"

	SelPDFLinks = "a:has(.icon-doc-pdf)"

	SelContentContainer = ".content,.question-container"
	SelInlineField      = ".inline-field"
	SelInvisibleOverlay = "#invis-o-div"
	SelInstructionLink  = `.content a[target="_blank"]`
	SelFormControls     = "input,select,textarea"
	SelCheckButton      = "#btnCheck"
	SelAudioButton      = "#btnEntryAudio"
	SelExitAudioButton  = "#btnExitAudio"
	SelNavButtonList    = "#navBtnList"

	SelDragDropColumns = ".sbgColumn"
	SelColumnLabels    = ".catLabel"
	SelTiles           = ".sbgTile"
)
