package commands

import (
	"context"
	"fmt"
	"os"
	"skyward-backend/lib/chrono"
	"skyward-backend/lib/skyward/client"
	"skyward-backend/lib/skyward/gradebook"
	"skyward-backend/lib/skyward/pipeline"
	"skyward-backend/lib/skyward/session"
	"skyward-backend/lib/telemetry"
)

// documentFlags point commands at saved documents instead of the live portal.
type documentFlags struct {
	gradebook string
	history   string
	gradeInfo string
}

func (f documentFlags) offline() bool {
	return f.gradebook != "" || f.history != "" || f.gradeInfo != ""
}

// fileFetcher serves documents from disk, it lets saved pages go through the same
// session checks and parsers as fetched ones.
type fileFetcher struct {
	files documentFlags
}

func (f fileFetcher) read(path, name string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no %s document was given", name)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(contents), nil
}

func (f fileFetcher) FetchGradebook(ctx context.Context, codes session.Codes) (string, error) {
	return f.read(f.files.gradebook, "gradebook")
}

func (f fileFetcher) FetchHistory(ctx context.Context, codes session.Codes) (string, error) {
	return f.read(f.files.history, "academic history")
}

func (f fileFetcher) FetchGradeInfo(ctx context.Context, codes session.Codes, req client.GradeInfoRequest) (string, error) {
	return f.read(f.files.gradeInfo, "grade info")
}

type fileAuthenticator struct{}

func (fileAuthenticator) Codes(ctx context.Context) (session.Codes, error) {
	return session.Codes{}, nil
}

func (fileAuthenticator) Refresh(ctx context.Context) (session.Codes, error) {
	return session.Codes{}, fmt.Errorf("saved documents cannot be refetched with a new session")
}

func newTime(config Config) (chrono.TimeAPI, error) {
	return chrono.NewStandardTime(config.Timezone)
}

func newService(files documentFlags) (pipeline.Service, error) {
	tel := telemetry.SlogAPI{}
	index := gradebook.NewCourseIndex(tel)

	if files.offline() {
		return pipeline.New(fileFetcher{files: files}, fileAuthenticator{}, index, tel), nil
	}

	config, err := loadConfig()
	if err != nil {
		return pipeline.Service{}, err
	}
	return newLiveService(config, index, tel)
}

func newLiveService(config Config, index *gradebook.CourseIndex, tel telemetry.API) (pipeline.Service, error) {
	if config.BaseUrl == "" {
		return pipeline.Service{}, fmt.Errorf("base_url is not configured, set it in %s or SKYWARD_BASE_URL", configPath)
	}
	time, err := newTime(config)
	if err != nil {
		return pipeline.Service{}, err
	}
	c, err := client.New(config.BaseUrl, tel, client.Options{
		DumpDir: config.DumpDir,
		Time:    time,
	})
	if err != nil {
		return pipeline.Service{}, err
	}
	return pipeline.New(c, pipeline.NewStaticAuthenticator(config.Codes), index, tel), nil
}
