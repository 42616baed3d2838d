package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const getJobByID = `-- name: GetJobByID :one
SELECT id, title, company, location, description, requirements,
       required_skills, preferred_skills, job_type,
       salary_min, salary_max, salary_currency, external_url
FROM jobs
WHERE id = $1
`

// GetJobByID implements the job store's get_job contract (spec §6b).
func (q *Queries) GetJobByID(ctx context.Context, id uuid.UUID) (Job, error) {
	var j Job
	var requiredSkills, preferredSkills pq.StringArray
	err := q.db.QueryRowContext(ctx, getJobByID, id).Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Requirements,
		&requiredSkills, &preferredSkills, &j.JobType,
		&j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &j.ExternalURL,
	)
	if err != nil {
		return Job{}, err
	}
	j.RequiredSkills = []string(requiredSkills)
	j.PreferredSkills = []string(preferredSkills)
	return j, nil
}
