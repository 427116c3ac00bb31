// Package ci defines the canonical pipeline configuration schema.
//
// The document root declares global sections; every other root key is a job.
// Jobs whose name starts with HiddenPrefix are templates: they must be maps
// but are never relevant.
package ci

import (
	"sync"
	"time"

	ciskema "github.com/reoring/ciskema"
	"github.com/reoring/ciskema/rules"
)

// HiddenPrefix marks template jobs.
const HiddenPrefix = "."

// JobsKey is the key under which the root entry stores the job collection.
const JobsKey = "jobs"

// DefaultStages is used when the document declares no stages.
var DefaultStages = []string{"build", "test", "deploy"}

// Registry returns the process-wide pipeline schema.
var Registry = sync.OnceValue(func() *ciskema.Registry {
	return NewRegistry()
})

// NewRegistry builds a fresh copy of the pipeline schema.
func NewRegistry() *ciskema.Registry {
	b := ciskema.NewBuilder()

	str := func(name, desc string) *ciskema.TypeBuilder {
		return b.Scalar(name, ciskema.ScalarString).Describe(desc)
	}
	boolean := func(name, desc string) *ciskema.TypeBuilder {
		return b.Scalar(name, ciskema.ScalarBool).Describe(desc)
	}

	commands := b.StringList("commands", ciskema.JoinNone).
		Describe("Shell commands run in order.")
	script := b.StringList("script", ciskema.JoinNewline).
		Describe("Commands executed by the job, joined into one script.")
	image := str("image", "Docker image used to run the job.")
	services := b.StringList("services", ciskema.JoinNone).
		Describe("Docker images linked as services.")
	variables := b.KeyValueMap("variables").
		Describe("Environment variables passed to jobs.")
	stages := b.StringList("stages", ciskema.JoinNone).
		Default(ciskema.Strings(DefaultStages...)).
		Describe("Ordered pipeline stages.")
	names := b.StringList("names", ciskema.JoinNone).
		Describe("List of job or tag names.")
	refs := b.StringOrRegexList("refs").
		Describe("Ref names or /regexps/ selecting when the job is created.")
	paths := b.StringList("paths", ciskema.JoinNone).
		Describe("File paths relative to the project directory.")

	cacheKey := str("cache_key", "Name that identifies the cache.").
		Default(ciskema.Str("default")).
		Rules(rules.KeyFormat())
	cachePolicy := str("cache_policy", "Whether the cache is pulled, pushed or both.").
		Default(ciskema.Str("pull-push")).
		Rules(rules.OneOf("pull", "push", "pull-push"))
	uploadWhen := str("upload_when", "Job outcome after which files are uploaded.").
		Default(ciskema.Str("on_success")).
		Rules(rules.OneOf("on_success", "on_failure", "always"))
	untracked := boolean("untracked", "Include files not tracked by git.")
	cache := b.Composite("cache").
		Describe("Files kept between jobs.").
		Child("key", cacheKey, "Cache key").
		Child("untracked", untracked, "Cache untracked files").
		Child("paths", paths, "Cached paths").
		Child("policy", cachePolicy, "Cache policy").
		Child("when", uploadWhen, "When to save the cache").
		Strict()

	expireIn := str("expire_in", "How long artifacts are kept, or \"never\".").
		Rules(rules.Or(rules.Duration(), rules.OneOf("never")))
	artifacts := b.Composite("artifacts").
		Describe("Files attached to the job after it finishes.").
		Child("name", str("artifacts_name", "Archive name."), "Artifacts archive name").
		Child("untracked", untracked, "Add untracked files").
		Child("paths", paths, "Artifact paths").
		Child("exclude", b.StringList("exclude", ciskema.JoinNone).Describe("Paths left out of the archive."), "Excluded paths").
		Child("when", uploadWhen, "When to upload artifacts").
		Child("expire_in", expireIn, "Artifacts expiry").
		Child("expose_as", str("expose_as", "Label shown in merge requests.").Rules(rules.NotBlank(), rules.MaxLength(100)), "Expose artifacts as").
		Child("public", boolean("public", "Whether artifacts are publicly readable."), "Public artifacts").
		Strict()

	jobWhen := str("job_when", "When the job runs.").
		Default(ciskema.Str("on_success")).
		Rules(rules.OneOf("on_success", "on_failure", "always", "manual", "delayed"))
	startIn := str("start_in", "Delay before a delayed job starts.").
		Rules(rules.Duration(), rules.DurationAtMost(7*24*time.Hour, "1 week"))
	timeout := str("timeout", "Maximum job duration.").
		Rules(rules.Duration())
	retry := b.Scalar("retry", ciskema.ScalarNumber).
		Describe("Automatic retries after a failure.").
		Rules(rules.IntRange(0, 2))
	coverage := str("coverage", "Regular expression extracting coverage from the job log.").
		Rules(rules.Regexp())

	job := b.Composite("job").
		Describe("A pipeline job.").
		Child("script", script, "Commands that will be executed in this job.").
		Child("before_script", commands, "Commands that will be executed before this job.").
		Child("after_script", commands, "Commands that will be executed after this job.").
		Child("stage", str("stage", "Stage the job belongs to.").Default(ciskema.Str("test")), "Pipeline stage this job will be executed into.").
		Child("type", str("type", "Deprecated alias of stage."), "Deprecated: stage this job will be executed into.").
		Child("image", image, "Image that will be used to execute this job.").
		Child("services", services, "Services that will be used to execute this job.").
		Child("tags", names, "Runner tags required by this job.").
		Child("only", refs, "Refs policy this job will be executed for.").
		Child("except", refs, "Refs policy this job will be executed for.").
		Child("when", jobWhen, "When to run this job.").
		Child("allow_failure", boolean("allow_failure", "Whether a failure keeps the pipeline green."), "Whether this job may fail.").
		Child("start_in", startIn, "Timer for a delayed job.").
		Child("timeout", timeout, "Job timeout.").
		Child("cache", cache, "Cache definition for this job.").
		Child("artifacts", artifacts, "Artifacts of this job.").
		Child("dependencies", names, "Jobs whose artifacts are downloaded.").
		Child("needs", names, "Jobs this job needs before it starts.").
		Child("extends", names, "Templates this job inherits from.").
		Child("variables", variables, "Environment variables available for this job.").
		Child("coverage", coverage, "Coverage parsing regexp.").
		Child("retry", retry, "Retry count.").
		Child("interruptible", boolean("interruptible", "Whether a newer pipeline may cancel the job."), "Interruptible job.").
		Child("resource_group", str("resource_group", "Serializes jobs sharing the group."), "Resource group.").
		Child("environment", str("environment", "Deployment environment name."), "Environment.").
		Rules(
			rules.RequireKeys("script"),
			rules.If(rules.KeyEquals("when", "delayed"), rules.RequireKeys("start_in")),
			rules.If(rules.Not(rules.KeyEquals("when", "delayed")), rules.ForbidKeys("start_in")),
		)
	hiddenJob := b.Composite("hidden_job").
		Describe("A job template that is never run on its own.")

	jobs := b.Collection("jobs", HiddenPrefix, job, hiddenJob).
		Describe("Jobs keyed by name.").
		Default(ciskema.NewMap().Value()).
		Rules(rules.KeysNotBlank(), rules.VisibleMember(HiddenPrefix))

	global := b.Composite("global").
		Describe("Pipeline configuration.").
		Default(ciskema.NewMap().Value()).
		Child("before_script", commands, "Script that will be executed before each job.").
		Child("after_script", commands, "Script that will be executed after each job.").
		Child("image", image, "Docker image that will be used to execute jobs.").
		Child("services", services, "Docker images that will be linked to the container.").
		Child("variables", variables, "Environment variables that will be used.").
		Child("stages", stages, "Configuration of stages for this pipeline.").
		Child("types", b.StringList("types", ciskema.JoinNone).Describe("Deprecated alias of stages."), "Deprecated: stages for this pipeline.").
		Child("cache", cache, "Configure caching between build jobs.").
		Rest(JobsKey, jobs, "Jobs definition for this pipeline.")

	return b.MustBuild(global)
}
