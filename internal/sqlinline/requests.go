package sqlinline

const QInsertRequest = `--sql 78c9e955-5237-4327-95ef-726b9cdac908
insert into generation_requests (id, target_ref, class, prompt, status, created_at, updated_at)
values ($1, $2, $3, $4, 'QUEUED', now(), now());
`

const QGetRequest = `--sql 57775d1e-3d67-492d-b46f-ec1456480ef0
select id, target_ref, class, prompt, status,
       coalesce(failed_stage, ''), coalesce(reason, ''),
       coalesce(artifact_ref, ''), coalesce(applied_ref, ''),
       created_at, updated_at
from generation_requests
where id = $1;
`

const QClaimRequest = `--sql b559bd44-4e25-492d-adcf-1c05db84e366
with next_request as (
    select id
    from generation_requests
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update generation_requests
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_request)
    returning id, target_ref, class, prompt
)
select * from claimed;
`

const QClaimRequestByID = `--sql 6f0a2d6b-3c41-4b7e-9257-8b4ac21f93da
update generation_requests
set status = 'RUNNING', updated_at = now()
where id = $1 and status = 'QUEUED'
returning id, target_ref, class, prompt;
`

const QFinishRequest = `--sql 012ac114-1585-4e3c-8ad5-aff1014bd548
update generation_requests
set status = $2,
    failed_stage = nullif($3, ''),
    reason = nullif($4, ''),
    artifact_ref = nullif($5, ''),
    applied_ref = nullif($6, ''),
    updated_at = now()
where id = $1;
`
