package sqlinline

const QUpsertHandle = `--sql 495df85a-908e-4a11-ad1d-4641289670f1
insert into generation_handles (request_id, handle, created_at)
values ($1, $2, now())
on conflict (request_id)
do update set handle = excluded.handle, created_at = now();
`

const QDeleteHandle = `--sql 817268ca-e78d-47e9-804a-6e9ea1750f8e
delete from generation_handles
where request_id = $1;
`

const QListStaleHandles = `--sql d3cbc489-a905-475a-82de-f346d8cb480d
select request_id, handle, created_at
from generation_handles
where created_at < now() - make_interval(secs => $1)
order by created_at asc;
`
