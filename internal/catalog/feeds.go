package catalog

// Wire shapes of the legacy resource api feeds. Fields not consumed by the
// index are omitted.

// projectEntry is one row of the primary catalog.
type projectEntry struct {
	Slug        string   `json:"slug"`
	Sort        int      `json:"sort"`
	Meta        []string `json:"meta"`
	LangCatalog string   `json:"lang_catalog"`
}

// languageEntry is one row of a per-project language catalog. Project info is
// mixed into the language rows upstream, so both records are decoded here.
type languageEntry struct {
	Language struct {
		Slug      string `json:"slug"`
		Name      string `json:"name"`
		Direction string `json:"direction"`
	} `json:"language"`
	Project struct {
		Name string   `json:"name"`
		Desc string   `json:"desc"`
		Meta []string `json:"meta"`
	} `json:"project"`
	ResCatalog string `json:"res_catalog"`
}

// resourceEntry is one row of a per-language resource catalog. The notes,
// checking_questions and terms urls carry legacy payloads that are split into
// synthetic resources during indexing.
type resourceEntry struct {
	Slug              string         `json:"slug"`
	Name              string         `json:"name"`
	Status            resourceStatus `json:"status"`
	Source            string         `json:"source"`
	DateModified      int            `json:"date_modified"`
	TWCat             string         `json:"tw_cat"`
	Notes             string         `json:"notes"`
	CheckingQuestions string         `json:"checking_questions"`
	Terms             string         `json:"terms"`
}

type resourceStatus struct {
	CheckingLevel string `json:"checking_level"`
	Comments      string `json:"comments"`
	License       string `json:"license"`
	Version       string `json:"version"`
	PublishDate   string `json:"publish_date"`
}

// chunkEntry is one row of a project chunks feed.
type chunkEntry struct {
	Chapter    string `json:"chp"`
	FirstVerse string `json:"firstvs"`
}

// languageNameEntry is one row of the langnames / temp-langnames feeds.
type languageNameEntry struct {
	LC  string `json:"lc"`
	LN  string `json:"ln"`
	ANG string `json:"ang"`
	LD  string `json:"ld"`
	LR  string `json:"lr"`
	GW  bool   `json:"gw"`
}

// questionnaireFeed is the new-language-questions payload.
type questionnaireFeed struct {
	Languages []questionnaireLanguage `json:"languages"`
}

type questionnaireLanguage struct {
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Dir             string          `json:"dir"`
	QuestionnaireID int64           `json:"questionnaire_id"`
	Questions       []questionEntry `json:"questions"`
}

type questionEntry struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Help      string `json:"help"`
	Required  bool   `json:"required"`
	InputType string `json:"input_type"`
	Sort      int    `json:"sort"`
	// DependsOn is null for top-level questions.
	DependsOn *int64 `json:"depends_on"`
}

// wordsAssignmentsFeed is the legacy tw_cat payload: chapters nesting frames
// nesting word items.
type wordsAssignmentsFeed struct {
	Chapters []struct {
		ID     string `json:"id"`
		Frames []struct {
			ID    string `json:"id"`
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"frames"`
	} `json:"chapters"`
}
