package sqlinline

const QEnqueueStepJob = `--sql 27044d0f-7d07-42f7-9738-81c88b5f1228
insert into step_jobs(id, session_id, step_type, status)
values ($1, $2, $3, 'QUEUED');
`

const QClaimStepJob = `--sql 12b7aad7-5469-45da-8657-bc248451bb27
with next_job as (
    select id
    from step_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update step_jobs
    set status = 'RUNNING', attempts = attempts + 1, updated_at = now()
    where id in (select id from next_job)
    returning id, session_id, step_type, status, attempts, last_error, created_at, updated_at
)
select * from updated;
`

const QFinishStepJob = `--sql 5e66016a-c8a4-4ad6-9fb9-971f49925e67
update step_jobs
set status = $2, last_error = $3, updated_at = now()
where id = $1;
`

const QRequeueStaleJobs = `--sql f9b193a1-4d0a-4ec9-95de-f7293ebabc4d
update step_jobs
set status = 'QUEUED', updated_at = now()
where status = 'RUNNING'
  and updated_at < $1;
`
