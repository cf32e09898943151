package sqlinline

const QSelectIntegrationToken = `--sql bd435461-8e5c-4c9f-8986-122576d7e98e
select token
from integration_tokens
where provider = $1;
`

const QUpsertIntegrationToken = `--sql c589b3f0-f81d-4208-9125-43212974699e
insert into integration_tokens (provider, token, properties, updated_at)
values ($1, $2, $3, now())
on conflict (provider)
do update set token = excluded.token, properties = excluded.properties, updated_at = now();
`
