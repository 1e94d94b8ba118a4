package sqlinline

const QSelectImageJobByID = `--sql 7351c514-107f-4f3f-a9b6-a0d37393e6e7
select id, generated_content_id, status, attempts, last_error, retry_after, created_at, updated_at
from image_jobs
where id = $1::uuid
limit 1;
`

const QSelectLatestImageJobForContent = `--sql 687af953-4a97-4893-9572-0f2f5ddf85e3
select id, generated_content_id, status, attempts, last_error, retry_after, created_at, updated_at
from image_jobs
where generated_content_id = $1::uuid
order by created_at desc
limit 1;
`

// QInsertImageJob yields no row when the content already has an active job.
const QInsertImageJob = `--sql 97840063-f189-4b8f-811d-1f958bf5ebfe
with active as (
    select 1
    from image_jobs
    where generated_content_id = $2::uuid
      and status in ('QUEUED', 'RUNNING')
    limit 1
),
inserted as (
    insert into image_jobs (id, generated_content_id, status, attempts, created_at, updated_at)
    select $1::uuid, $2::uuid, 'QUEUED', 0, now(), now()
    where not exists (select 1 from active)
    returning id, generated_content_id, status, attempts, last_error, retry_after, created_at, updated_at
),
touched as (
    update generated_contents
    set image_status = 'generating', image_error = null, updated_at = now()
    where id = $2::uuid
      and exists (select 1 from inserted)
)
select id, generated_content_id, status, attempts, last_error, retry_after, created_at, updated_at
from inserted;
`

// QClaimImageJob is the compare-and-set that hands a job to one worker.
const QClaimImageJob = `--sql 58556352-e50c-47dc-a12e-b5cb0caeb01d
with claimed as (
    update image_jobs
    set status = 'RUNNING',
        attempts = attempts + 1,
        retry_after = null,
        updated_at = now()
    where id = $1::uuid
      and status = 'QUEUED'
      and attempts < $2::int
      and (retry_after is null or retry_after <= $3::timestamptz)
    returning id, generated_content_id, status, attempts, last_error, retry_after, created_at, updated_at
),
touched as (
    update generated_contents
    set image_status = 'generating', updated_at = now()
    where id in (select generated_content_id from claimed)
)
select id, generated_content_id, status, attempts, last_error, retry_after, created_at, updated_at
from claimed;
`

const QMarkImageJobSucceeded = `--sql 80329683-6387-4bb3-9952-fff213e04bde
update image_jobs
set status = 'SUCCEEDED',
    last_error = null,
    retry_after = null,
    updated_at = now()
where id = $1::uuid
  and status = 'RUNNING';
`

const QRequeueImageJob = `--sql 881fb53a-f02a-4d34-bffc-56aa75ddcffb
update image_jobs
set status = 'QUEUED',
    last_error = $2::text,
    retry_after = $3::timestamptz,
    updated_at = now()
where id = $1::uuid
  and status = 'RUNNING';
`

const QMarkImageJobFailed = `--sql df0e7258-5481-474f-b3b6-419041e0020f
update image_jobs
set status = 'FAILED',
    last_error = $2::text,
    retry_after = null,
    updated_at = now()
where id = $1::uuid
  and status = 'RUNNING';
`

const QSweepDueRetries = `--sql 5b2fc579-b732-4843-b39e-737e9a9d084f
with due as (
    select id
    from image_jobs
    where status = 'QUEUED'
      and retry_after is not null
      and retry_after <= $1::timestamptz
    order by retry_after asc
    for update skip locked
    limit $2::int
)
update image_jobs j
set retry_after = null, updated_at = now()
from due
where j.id = due.id
returning j.id;
`

const QSweepOrphanedJobs = `--sql 0d7f3a52-8e61-4c2b-9a4f-6b1e2c7d9f30
with idle as (
    select id
    from image_jobs
    where status = 'QUEUED'
      and retry_after is null
      and updated_at < $1::timestamptz
    order by updated_at asc
    for update skip locked
    limit $2::int
)
update image_jobs j
set updated_at = now()
from idle
where j.id = idle.id
returning j.id;
`

const QSweepExpiredLeases = `--sql 5844a124-0126-4f48-943b-95135e7112b9
with stale as (
    select id
    from image_jobs
    where status = 'RUNNING'
      and updated_at < $1::timestamptz
      and attempts < $2::int
    order by updated_at asc
    for update skip locked
    limit $4::int
)
update image_jobs j
set status = 'QUEUED', last_error = $3::text, updated_at = now()
from stale
where j.id = stale.id
returning j.id;
`

const QSweepExhaustedLeases = `--sql 63e3540c-b3d8-4b96-becd-dfe38c13c2f3
with stale as (
    select id
    from image_jobs
    where status = 'RUNNING'
      and updated_at < $1::timestamptz
      and attempts >= $2::int
    order by updated_at asc
    for update skip locked
    limit $5::int
),
failed as (
    update image_jobs j
    set status = 'FAILED', last_error = $3::text, retry_after = null, updated_at = now()
    from stale
    where j.id = stale.id
    returning j.id, j.generated_content_id
),
touched as (
    update generated_contents gc
    set image_status = 'failed', image_error = $4::text, updated_at = now()
    from failed
    where gc.id = failed.generated_content_id
)
select id
from failed;
`
