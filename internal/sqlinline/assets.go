package sqlinline

const QAssetStorageKey = `--sql ef62289e-d246-4fd4-a3ff-d4c07003f98c
select storage_key
from assets
where ref = $1;
`

const QMarkAssetReplaced = `--sql e9ce553d-ab60-4eb5-bd45-cc863c61cca8
update assets
set replaced_by = $2,
    size_bytes = $3,
    replaced_at = now()
where ref = $1;
`
